// Package importer reads reading-tracker exports into match inputs. CSV
// exports are header driven with a few common column aliases; JSON exports are
// either {"series": [...]} or a bare array of the same objects.
package importer
