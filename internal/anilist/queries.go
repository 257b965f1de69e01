package anilist

const mediaFields = `
  id
  title { romaji english native }
  synonyms
  format
  status
  chapters
  volumes
  isAdult
  siteUrl
  coverImage { large medium }
  mediaListEntry { id status progress progressVolumes score }
`

const searchQuery = `query ($search: String, $page: Int, $perPage: Int, $genres: [String], $tags: [String], $formats: [MediaFormat]) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { total currentPage lastPage hasNextPage perPage }
    media(search: $search, type: MANGA, genre_in: $genres, tag_in: $tags, format_in: $formats) {` + mediaFields + `}
  }
}`

const byIDsQuery = `query ($ids: [Int], $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    pageInfo { total currentPage lastPage hasNextPage perPage }
    media(id_in: $ids, type: MANGA) {` + mediaFields + `}
  }
}`
