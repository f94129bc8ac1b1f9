package collection

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/handiism/moviedata/internal/codec"
	"github.com/handiism/moviedata/internal/model"
)

func sampleContainer() *Container {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	c := New()
	c.Add(model.NewMovie("The Matrix", 1999, 136, day(2022, 3, 4), "line one\nline two"))
	c.Add(model.NewMovie("Avatar", 2009, 162, day(2021, 2, 3), "Para one\n\nPara two"))
	c.Add(model.NewMovie("2001: A Space Odyssey", 1968, 149, day(2020, 1, 2), ""))
	c.Add(model.NewMovie("Amélie & <Co>", model.UnknownYear, model.UnknownMinutes, day(2023, 4, 5), "naïve\n\n\n'quoted' & \"double\""))
	return c
}

func assertSameContents(t *testing.T, got, want []*model.Movie) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d movies, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("movie %d = %+v, want %+v", i, *got[i], *want[i])
		}
	}
}

func TestContainer_SaveLoadRoundTrip(t *testing.T) {
	sets := map[string]func() *Container{
		"empty": func() *Container { return New() },
		"one": func() *Container {
			c := New()
			c.Add(model.NewMovie("Avatar", 2009, 162, time.Time{}, "Para one\n\nPara two"))
			return c
		},
		"many": sampleContainer,
	}

	for _, ext := range []string{".mqb", ".mpb", ".mqt", ".mpt"} {
		for name, build := range sets {
			t.Run(ext+"/"+name, func(t *testing.T) {
				c := build()
				want := c.Movies()
				path := filepath.Join(t.TempDir(), "movies"+ext)

				msg, err := c.Save(path)
				if err != nil {
					t.Fatalf("Save() error = %v", err)
				}
				wantMsg := "Saved " + strconv.Itoa(len(want)) + " movie records to movies" + ext
				if msg != wantMsg {
					t.Errorf("Save() = %q, want %q", msg, wantMsg)
				}
				if c.IsDirty() {
					t.Error("Save() should clear the dirty flag")
				}
				if c.Filename() != path {
					t.Errorf("Filename() = %q, want %q", c.Filename(), path)
				}

				c.Clear(false)
				msg, err = c.Load("")
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				if !strings.HasPrefix(msg, "Loaded "+strconv.Itoa(len(want))+" movie records from") {
					t.Errorf("Load() = %q", msg)
				}
				if c.IsDirty() {
					t.Error("Load() should clear the dirty flag")
				}
				assertSameContents(t, c.Movies(), want)
			})
		}
	}
}

func TestContainer_LoadIdempotent(t *testing.T) {
	for _, ext := range []string{".mqb", ".mpb", ".mqt"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "movies"+ext)
			if _, err := sampleContainer().Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			c := New()
			if _, err := c.Load(path); err != nil {
				t.Fatalf("first Load() error = %v", err)
			}
			first := c.Movies()
			if _, err := c.Load(path); err != nil {
				t.Fatalf("second Load() error = %v", err)
			}
			assertSameContents(t, c.Movies(), first)
		})
	}
}

func TestContainer_TextKeepsParagraphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.mqt")
	c := New()
	c.Add(model.NewMovie("Avatar", 2009, 162, time.Time{}, "Para one\n\nPara two"))
	if _, err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := New()
	if _, err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.MovieAt(0).Notes; got != "Para one\n\nPara two" {
		t.Errorf("Notes = %q, want %q", got, "Para one\n\nPara two")
	}
}

func TestContainer_DumpKeepsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.mpb")
	c := sampleContainer()
	if _, err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := New()
	if _, err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for m := range c.All() {
		got, ok := loaded.MovieFromID(m.ID)
		if !ok || !got.Equal(m) {
			t.Errorf("movie %q not found by identity after reload", m.Title)
		}
	}
}

func binaryHeader(magic, version int32) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, magic)
	binary.Write(&buf, binary.BigEndian, version)
	return buf.Bytes()
}

func TestContainer_LoadRejectsHeader(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
		wantMsg string
	}{
		{"wrong magic", binaryHeader(0x1234, codec.FileVersion), codec.ErrUnrecognizedFormat, "unrecognized"},
		{"older version", binaryHeader(codec.MagicNumber, codec.FileVersion-1), codec.ErrOldVersion, "old"},
		{"newer version", binaryHeader(codec.MagicNumber, codec.FileVersion+1), codec.ErrNewVersion, "new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.mqb")
			if err := os.WriteFile(path, tt.data, 0644); err != nil {
				t.Fatal(err)
			}
			c := sampleContainer()
			c.SetFilename("previous.mqb")

			msg, err := c.Load(path)
			if err == nil {
				t.Fatalf("Load() = %q, want error", msg)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), "failed to load:") || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %q, want failed to load: ...%s...", err, tt.wantMsg)
			}
			if c.Len() != 0 {
				t.Errorf("Len() = %d after failed load, want 0", c.Len())
			}
			if c.Filename() != "previous.mqb" {
				t.Errorf("Filename() = %q, want previous.mqb", c.Filename())
			}
		})
	}
}

func TestContainer_LoadTruncatedLeavesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.mqb")
	if _, err := sampleContainer().Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0644); err != nil {
		t.Fatal(err)
	}

	c := sampleContainer()
	if _, err := c.Load(path); err == nil {
		t.Fatal("Load() of a truncated file should fail")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestContainer_LoadMissingFileKeepsContents(t *testing.T) {
	c := sampleContainer()
	before := c.Len()

	_, err := c.Load(filepath.Join(t.TempDir(), "missing.mqb"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want not exist", err)
	}
	if c.Len() != before {
		t.Errorf("Len() = %d, want %d", c.Len(), before)
	}
}

func TestContainer_InvalidExtension(t *testing.T) {
	c := sampleContainer()
	dir := t.TempDir()

	_, err := c.Save(filepath.Join(dir, "movies.txt"))
	if !errors.Is(err, codec.ErrInvalidExtension) {
		t.Errorf("Save() error = %v, want ErrInvalidExtension", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to save:") {
		t.Errorf("Save() error = %q, want failed to save: prefix", err)
	}
	if !c.IsDirty() {
		t.Error("failed Save() should leave the container dirty")
	}
	if c.Filename() != "" {
		t.Errorf("Filename() = %q, want empty", c.Filename())
	}

	_, err = c.Load(filepath.Join(dir, "movies.doc"))
	if !errors.Is(err, codec.ErrInvalidExtension) || !strings.HasPrefix(err.Error(), "failed to load:") {
		t.Errorf("Load() error = %v", err)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}

func TestContainer_NoFilename(t *testing.T) {
	c := New()
	if _, err := c.Save(""); !errors.Is(err, ErrNoFilename) {
		t.Errorf("Save() error = %v, want ErrNoFilename", err)
	}
	if _, err := c.Load(""); !errors.Is(err, ErrNoFilename) {
		t.Errorf("Load() error = %v, want ErrNoFilename", err)
	}
	if _, err := c.ExportXML(""); !errors.Is(err, ErrNoFilename) {
		t.Errorf("ExportXML() error = %v, want ErrNoFilename", err)
	}
}

func TestContainer_ExportImportXML(t *testing.T) {
	imports := map[string]func(*Container, string) (string, error){
		"dom": (*Container).ImportDOM,
		"sax": (*Container).ImportSAX,
	}

	for name, importXML := range imports {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			c := sampleContainer()
			c.SetFilename(filepath.Join(dir, "movies.mqb"))
			c.SetDirty(false)
			want := c.Movies()

			msg, err := c.ExportXML("")
			if err != nil {
				t.Fatalf("ExportXML() error = %v", err)
			}
			if msg != "Exported 4 movie records to movies.xml" {
				t.Errorf("ExportXML() = %q", msg)
			}
			if c.IsDirty() {
				t.Error("ExportXML() should not change the dirty flag")
			}

			loaded := New()
			loaded.SetFilename("old.mqt")
			msg, err = importXML(loaded, filepath.Join(dir, "movies.xml"))
			if err != nil {
				t.Fatalf("import error = %v", err)
			}
			if msg != "Imported 4 movie records from movies.xml" {
				t.Errorf("import = %q", msg)
			}
			if !loaded.IsDirty() {
				t.Error("import should mark the container dirty")
			}
			if loaded.Filename() != "" {
				t.Errorf("Filename() = %q after import, want empty", loaded.Filename())
			}
			assertSameContents(t, loaded.Movies(), want)
		})
	}
}

func TestContainer_ImportRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.xml")
	doc := "<?xml version='1.0' encoding='UTF-8'?>\n<!DOCTYPE MOVIES>\n<MOVIES VERSION='200'>\n</MOVIES>\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	for _, importXML := range []func(*Container, string) (string, error){(*Container).ImportDOM, (*Container).ImportSAX} {
		c := sampleContainer()
		_, err := importXML(c, path)
		if !errors.Is(err, codec.ErrNewVersion) || !strings.HasPrefix(err.Error(), "failed to import:") {
			t.Errorf("import error = %v, want failed to import: new version", err)
		}
		if c.Len() != 0 {
			t.Errorf("Len() = %d after failed import, want 0", c.Len())
		}
	}
}

func TestContainer_SaveDoesNotLeaveTempFiles(t *testing.T) {
	dir := t.TempDir()
	c := sampleContainer()
	for i := 0; i < 3; i++ {
		if _, err := c.Save(filepath.Join(dir, "movies.mqb")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want 1", len(entries))
	}
}
