package importer_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mangamatch/internal/importer"
	"mangamatch/internal/services"
)

const sampleCSV = "\ufeffTitle,Status,Chapters Read,Volumes Read,Score,URL,Notes,Last Read At,AniList ID,Alt Titles\n" +
	"Attack on Titan,completed,139,34,9.5,https://example.com/aot,,2024-05-01,53390,Shingeki no Kyojin; AoT\n" +
	"\"Kaguya-sama: Love Is War\",reading,120.5,,8,,\"great, funny\",2024-05-02 10:00:00,,\n" +
	"attack on titan,completed,1,,,,,,,\n" +
	",dropped,,,,,,,,\n"

func TestReadCSV(t *testing.T) {
	inputs, err := importer.Read(strings.NewReader(sampleCSV), importer.FormatAuto)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected duplicates and blank rows dropped, got %d inputs", len(inputs))
	}
	aot := inputs[0]
	if aot.CatalogID != 53390 || aot.ChaptersRead != 139 || aot.VolumesRead != 34 || aot.Score != 9.5 {
		t.Fatalf("unexpected first row %+v", aot)
	}
	if len(aot.AlternativeTitles) != 2 || aot.AlternativeTitles[1] != "AoT" {
		t.Fatalf("unexpected alternative titles %v", aot.AlternativeTitles)
	}
	if !aot.LastReadAt.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last read %v", aot.LastReadAt)
	}
	kaguya := inputs[1]
	if kaguya.Title != "Kaguya-sama: Love Is War" || kaguya.ChaptersRead != 120.5 || kaguya.Notes != "great, funny" {
		t.Fatalf("unexpected second row %+v", kaguya)
	}
}

func TestReadCSVRequiresTitleColumn(t *testing.T) {
	_, err := importer.Read(strings.NewReader("name_of_thing,status\nx,y\n"), importer.FormatCSV)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadJSON(t *testing.T) {
	doc := `{"series":[
	  {"title":"Berserk","anilist_id":30002,"chapters_read":"364","score":10,"last_read_at":"2024-01-02T03:04:05Z"},
	  {"title":"Vagabond","alternative_titles":["バガボンド"," "],"volumes_read":37}
	]}`
	inputs, err := importer.Read(strings.NewReader(doc), importer.FormatAuto)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(inputs))
	}
	if inputs[0].CatalogID != 30002 || inputs[0].ChaptersRead != 364 || inputs[0].Score != 10 {
		t.Fatalf("unexpected first series %+v", inputs[0])
	}
	if len(inputs[1].AlternativeTitles) != 1 || inputs[1].VolumesRead != 37 {
		t.Fatalf("unexpected second series %+v", inputs[1])
	}

	bare, err := importer.Read(strings.NewReader(`[{"title":"Monster"}]`), importer.FormatJSON)
	if err != nil || len(bare) != 1 {
		t.Fatalf("expected bare array accepted, got %v %v", bare, err)
	}
}

func TestReadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(path, []byte("title\nPluto\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	inputs, err := importer.ReadFile(path, importer.FormatAuto)
	if err != nil || len(inputs) != 1 || inputs[0].Title != "Pluto" {
		t.Fatalf("unexpected %v %v", inputs, err)
	}
	if _, err := importer.ParseFormat("xml"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
