package backend

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/flexdir/internal/codec"
	"github.com/starford/flexdir/internal/language"
	"github.com/starford/flexdir/internal/storage"
)

func newFolder(t *testing.T, store storage.Provider, tpl string, langs language.Resolver, header ...string) *Folder {
	t.Helper()
	b, err := NewFolder(store, FolderOptions{
		Type:         "contacts",
		Template:     tpl,
		Format:       codec.Markdown,
		HeaderFields: header,
		Languages:    langs,
	})
	if err != nil {
		t.Fatalf("NewFolder: %v", err)
	}
	return b
}

func loadMap(t *testing.T, b Backend) map[string]map[string]any {
	t.Helper()
	entries, err := b.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out := map[string]map[string]any{}
	for _, e := range entries {
		out[e.Key] = e.Fields
	}
	return out
}

func TestFolder_LanguageVariants(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Write("data/contacts/entry.md", []byte("---\ntitle: Hello\n---\n"))
	_ = store.Write("data/contacts/entry.de.md", []byte("---\ntitle: Hallo\n---\n"))

	site := language.NewStatic("", "en", []string{"en", "de", "fr"})
	cases := []struct {
		active string
		want   any // nil means no record
	}{
		{"", "Hello"},
		{"en", "Hello"},
		{"de", "Hallo"},
		{"fr", nil},
	}
	for _, tc := range cases {
		b := newFolder(t, store, "data/contacts/{key}.md", site.WithActive(tc.active))
		got := loadMap(t, b)
		rec, ok := got["entry"]
		if tc.want == nil {
			if ok {
				t.Errorf("active %q: expected no record, got %v", tc.active, rec)
			}
			continue
		}
		if !ok || rec["title"] != tc.want {
			t.Errorf("active %q: got %v, want title %v", tc.active, rec, tc.want)
		}
	}
}

func TestFolder_FrontmatterUnderHeader(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Write("data/contacts/ada/item.md", []byte("---\ntitle: Header title\nmeta:\n  a: header\n---\nBody\n"))
	_ = store.Write("data/contacts/ada/frontmatter.yaml", []byte("title: Front title\nemail: ada@example.com\nmeta:\n  a: front\n  b: front\n"))

	b := newFolder(t, store, "data/contacts/{key}/item.md", language.None())
	got := loadMap(t, b)
	want := map[string]map[string]any{
		"ada": {
			"title":         "Header title",
			"email":         "ada@example.com",
			"meta":          map[string]any{"a": "header", "b": "front"},
			codec.BodyField: "Body\n",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFolder_MediaListing(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Write("data/contacts/ada/item.md", []byte("---\ntitle: Ada\n---\n"))
	_ = store.Write("data/contacts/ada/item.de.md", []byte(""))
	_ = store.Write("data/contacts/ada/frontmatter.yaml", []byte("x: 1\n"))
	_ = store.Write("data/contacts/ada/photo.jpg", []byte("jpeg"))

	b := newFolder(t, store, "data/contacts/{key}/item.md", language.NewStatic("", "en", []string{"en", "de"}))
	got := loadMap(t, b)
	want := []any{map[string]any{"name": "photo.jpg", "path": "data/contacts/ada/photo.jpg"}}
	if diff := cmp.Diff(want, got["ada"][MediaField]); diff != "" {
		t.Errorf("media mismatch (-want +got):\n%s", diff)
	}
}

func TestFolder_MixedLayouts(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Write("d/flat.md", []byte("---\nsrc: flat\n---\n"))
	_ = store.Write("d/both.md", []byte("---\nsrc: flat\n---\n"))
	_ = store.Write("d/both/item.md", []byte("---\nsrc: folder\n---\n"))
	_ = store.Write("d/other/notes.md", []byte("---\nsrc: ignored\n---\n"))
	_ = store.Write("d/readme.txt", []byte("not a record"))

	b := newFolder(t, store, "d/{key}/item.md", language.None())
	got := loadMap(t, b)
	if len(got) != 2 {
		t.Fatalf("keys = %v", got)
	}
	if got["flat"]["src"] != "flat" {
		t.Errorf("flat = %v", got["flat"])
	}
	if got["both"]["src"] != "folder" {
		t.Errorf("layout-native file should win: %v", got["both"])
	}
}

func TestFolder_SaveSplitsHeaderAndFrontmatter(t *testing.T) {
	store := storage.NewMemory()
	site := language.NewStatic("en", "en", []string{"en", "de"})
	b := newFolder(t, store, "data/contacts/{key}/item.md", site, "title")

	fields := map[string]any{
		"title":         "Ada",
		"email":         "ada@example.com",
		codec.BodyField: "Bio\n",
		MediaField:      []any{"ignored"},
	}
	if err := b.SaveEntry("ada", fields); err != nil {
		t.Fatalf("SaveEntry: %v", err)
	}

	head, err := store.Read("data/contacts/ada/item.en.md")
	if err != nil {
		t.Fatalf("read header file: %v", err)
	}
	if string(head) != "---\ntitle: Ada\n---\nBio\n" {
		t.Errorf("header file = %q", head)
	}
	front, _ := store.Read("data/contacts/ada/frontmatter.yaml")
	if string(front) != "email: ada@example.com\n" {
		t.Errorf("frontmatter = %q", front)
	}
	placeholder, err := store.Read("data/contacts/ada/item.de.md")
	if err != nil || len(placeholder) != 0 {
		t.Errorf("placeholder = %q, %v", placeholder, err)
	}

	got := loadMap(t, newFolder(t, store, "data/contacts/{key}/item.md", site, "title"))
	delete(fields, MediaField)
	if diff := cmp.Diff(fields, got["ada"]); diff != "" {
		t.Errorf("reload mismatch (-want +got):\n%s", diff)
	}
}

func TestFolder_SaveKeepsExistingVariants(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Write("d/k.de.md", []byte("---\ntitle: Hallo\n---\n"))
	b := newFolder(t, store, "d/{key}.md", language.NewStatic("", "en", []string{"en", "de"}))

	if err := b.SaveEntry("k", map[string]any{"title": "Hello"}); err != nil {
		t.Fatal(err)
	}
	de, _ := store.Read("d/k.de.md")
	if string(de) != "---\ntitle: Hallo\n---\n" {
		t.Errorf("existing variant overwritten: %q", de)
	}
	if ok, _ := store.Exists("d/k.md"); !ok {
		t.Error("unsuffixed file missing")
	}
	if ok, _ := store.Exists("d/k.en.md"); ok {
		t.Error("unsuffixed file already holds the default language; no en placeholder expected")
	}
}

func TestFolder_SaveWithoutActiveLoadsUnderDefault(t *testing.T) {
	store := storage.NewMemory()
	site := language.NewStatic("", "en", []string{"en", "de"})
	fields := map[string]any{"title": "Ada", codec.BodyField: "bio"}
	if err := newFolder(t, store, "d/{key}.md", site).SaveEntry("ada", fields); err != nil {
		t.Fatal(err)
	}

	for _, active := range []string{"", "en"} {
		got := loadMap(t, newFolder(t, store, "d/{key}.md", site.WithActive(active)))
		if diff := cmp.Diff(fields, got["ada"]); diff != "" {
			t.Errorf("active %q: mismatch (-want +got):\n%s", active, diff)
		}
	}
	got := loadMap(t, newFolder(t, store, "d/{key}.md", site.WithActive("de")))
	if rec, ok := got["ada"]; !ok || len(rec) != 0 {
		t.Errorf("active de: want empty placeholder record, got %v", got)
	}
}

func TestFolder_DottedKeysSurviveReload(t *testing.T) {
	store := storage.NewMemory()
	site := language.NewStatic("", "en", []string{"en", "de"})
	b := newFolder(t, store, "data/contacts/{key}.md", site)
	for _, key := range []string{"j.doe", "ada@example.com"} {
		if err := b.SaveEntry(key, map[string]any{"title": key}); err != nil {
			t.Fatalf("SaveEntry(%q): %v", key, err)
		}
	}

	got := loadMap(t, newFolder(t, store, "data/contacts/{key}.md", site))
	for _, key := range []string{"j.doe", "ada@example.com"} {
		if got[key]["title"] != key {
			t.Errorf("%s: got %v", key, got[key])
		}
	}
}

func TestFolder_DeleteEntry(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Write("per/ada/item.md", []byte("x"))
	_ = store.Write("per/ada/photo.jpg", []byte("x"))
	_ = store.Write("flat/ada.md", []byte("x"))
	_ = store.Write("flat/ada.de.md", []byte("x"))
	_ = store.Write("flat/bob.md", []byte("x"))

	site := language.NewStatic("", "en", []string{"en", "de"})
	per := newFolder(t, store, "per/{key}/item.md", site)
	flat := newFolder(t, store, "flat/{key}.md", site)

	if err := per.DeleteEntry("ada"); err != nil {
		t.Fatalf("per-entry delete: %v", err)
	}
	if ok, _ := store.Exists("per/ada"); ok {
		t.Error("record folder still exists")
	}
	if err := flat.DeleteEntry("ada"); err != nil {
		t.Fatalf("flat delete: %v", err)
	}
	for _, p := range []string{"flat/ada.md", "flat/ada.de.md"} {
		if ok, _ := store.Exists(p); ok {
			t.Errorf("%s still exists", p)
		}
	}
	if ok, _ := store.Exists("flat/bob.md"); !ok {
		t.Error("unrelated record removed")
	}
	if err := per.DeleteEntry("ghost"); err != nil {
		t.Errorf("deleting a missing record: %v", err)
	}
}

func TestFolder_OnDisk(t *testing.T) {
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFolder(store, FolderOptions{Type: "faq", Template: "faq/{key}.json", Format: codec.JSON})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SaveEntry("q1", map[string]any{"q": "Why?"}); err != nil {
		t.Fatal(err)
	}
	got := loadMap(t, b)
	if got["q1"]["q"] != "Why?" {
		t.Errorf("got %v", got)
	}
}

func TestFolder_IsMedia(t *testing.T) {
	b := newFolder(t, storage.NewMemory(), "data/contacts/{key}/item.md", language.None())
	cases := map[string]bool{
		"photo.jpg":        true,
		"notes.md":         true,
		"item.md":          false,
		"item.de.md":       false,
		"frontmatter.yaml": false,
		".DS_Store":        false,
		"sub/photo.jpg":    false,
		"":                 false,
	}
	for name, want := range cases {
		if got := b.IsMedia("ada", name); got != want {
			t.Errorf("IsMedia(%q) = %v, want %v", name, got, want)
		}
	}
}
