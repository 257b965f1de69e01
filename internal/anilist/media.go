package anilist

import (
	"strings"

	"mangamatch/internal/catalog"
)

type mediaTitle struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

type coverImage struct {
	Large  string `json:"large"`
	Medium string `json:"medium"`
}

type mediaListEntry struct {
	ID              int64   `json:"id"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	ProgressVolumes int     `json:"progressVolumes"`
	Score           float64 `json:"score"`
}

type media struct {
	ID             int64           `json:"id"`
	Title          mediaTitle      `json:"title"`
	Synonyms       []string        `json:"synonyms"`
	Format         string          `json:"format"`
	Status         string          `json:"status"`
	Chapters       *int            `json:"chapters"`
	Volumes        *int            `json:"volumes"`
	IsAdult        bool            `json:"isAdult"`
	SiteURL        string          `json:"siteUrl"`
	CoverImage     *coverImage     `json:"coverImage"`
	MediaListEntry *mediaListEntry `json:"mediaListEntry"`
}

type pageInfo struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	LastPage    int  `json:"lastPage"`
	HasNextPage bool `json:"hasNextPage"`
	PerPage     int  `json:"perPage"`
}

type pagePayload struct {
	Page *struct {
		PageInfo pageInfo `json:"pageInfo"`
		Media    []media  `json:"media"`
	} `json:"Page"`
}

func (m media) record() catalog.Record {
	rec := catalog.Record{
		ID: m.ID,
		Title: catalog.Title{
			English: strings.TrimSpace(m.Title.English),
			Romaji:  strings.TrimSpace(m.Title.Romaji),
			Native:  strings.TrimSpace(m.Title.Native),
		},
		Format:  catalog.Format(m.Format),
		Status:  m.Status,
		IsAdult: m.IsAdult,
		SiteURL: m.SiteURL,
	}
	for _, synonym := range m.Synonyms {
		if s := strings.TrimSpace(synonym); s != "" {
			rec.Synonyms = append(rec.Synonyms, s)
		}
	}
	if m.Chapters != nil {
		rec.Chapters = *m.Chapters
	}
	if m.Volumes != nil {
		rec.Volumes = *m.Volumes
	}
	if m.CoverImage != nil {
		rec.CoverURL = m.CoverImage.Large
		if rec.CoverURL == "" {
			rec.CoverURL = m.CoverImage.Medium
		}
	}
	if e := m.MediaListEntry; e != nil {
		rec.ListEntry = &catalog.ListEntry{
			ID:       e.ID,
			Status:   e.Status,
			Progress: e.Progress,
			Volumes:  e.ProgressVolumes,
			Score:    e.Score,
		}
	}
	return rec
}

func (p pageInfo) catalog() catalog.PageInfo {
	return catalog.PageInfo{
		Total:       p.Total,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		PerPage:     p.PerPage,
		HasNextPage: p.HasNextPage,
	}
}
