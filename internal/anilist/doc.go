// Package anilist talks to the AniList GraphQL API: HTTPTransport performs
// the POSTs and maps failures to gateway.StatusError, and Client builds the
// search and id lookups on top of a gateway.Gateway.
package anilist
