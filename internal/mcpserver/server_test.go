package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/flexdir/internal/entryservice"
	"github.com/starford/flexdir/internal/storage"
	"github.com/starford/flexdir/internal/testutil"
)

const (
	contactsBP = `fields:
  - name: slug
  - name: name
storage:
  type: folder
  path: user://data/contacts/{key}/item.md
  key_field: slug
`
	faqBP = `fields:
  - name: question
`
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	store := storage.NewMemory()
	reg := testutil.TestRegistry(t, store, map[string]string{"contacts": contactsBP, "faq": faqBP})
	svc := entryservice.New(reg, testutil.TestDB(t), nil, testutil.QuietLogger())
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_directories":
		result, err = srv.listDirectories(ctx, req)
	case "list_entries":
		result, err = srv.listEntries(ctx, req)
	case "get_entry":
		result, err = srv.getEntry(ctx, req)
	case "save_entry":
		result, err = srv.saveEntry(ctx, req)
	case "remove_entry":
		result, err = srv.removeEntry(ctx, req)
	case "upload_media":
		result, err = srv.uploadMedia(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListDirectories(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_directories", nil)
	var dirs []entryservice.DirectorySummary
	if err := json.Unmarshal([]byte(resultText(r)), &dirs); err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 2 || dirs[0].Name != "contacts" {
		t.Errorf("dirs = %+v", dirs)
	}
}

func TestSaveAndGetEntry(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "save_entry", map[string]any{
		"type":   "contacts",
		"fields": map[string]any{"slug": "ada", "name": "Ada"},
	})
	if r.IsError {
		t.Fatalf("save_entry: %s", resultText(r))
	}
	if ok, _ := store.Exists("data/contacts/ada/item.md"); !ok {
		t.Error("entry not written")
	}

	r = callTool(t, srv, "get_entry", map[string]any{"type": "contacts", "key": "ada"})
	var d entryservice.EntryDetail
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatal(err)
	}
	if d.Fields["name"] != "Ada" || d.Checksum == "" {
		t.Errorf("entry = %+v", d)
	}

	// Fields passed as a JSON string and a stale checksum.
	r = callTool(t, srv, "save_entry", map[string]any{
		"type":     "contacts",
		"key":      "ada",
		"fields":   `{"name": "Ada L."}`,
		"checksum": "stale",
	})
	if !r.IsError || !strings.Contains(resultText(r), "checksum mismatch") {
		t.Errorf("stale checksum: %s", resultText(r))
	}
}

func TestSaveEntry_DefaultTypeAndBadFields(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "save_entry", map[string]any{"fields": "[1, 2]"})
	if !r.IsError {
		t.Error("expected error for non-object fields")
	}
	r = callTool(t, srv, "save_entry", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing fields")
	}
	r = callTool(t, srv, "save_entry", map[string]any{"fields": map[string]any{"slug": "bob"}})
	if r.IsError {
		t.Fatalf("default type: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"type": "contacts"`) {
		t.Errorf("result = %s", resultText(r))
	}
}

func TestListEntries(t *testing.T) {
	srv, _ := testServer(t)
	for _, k := range []string{"a", "b", "c"} {
		callTool(t, srv, "save_entry", map[string]any{"type": "faq", "key": k, "fields": map[string]any{"question": k}})
	}
	r := callTool(t, srv, "list_entries", map[string]any{"type": "faq", "limit": float64(2)})
	var out struct {
		Entries []entryservice.EntryDetail `json:"entries"`
		Total   int                        `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 3 || len(out.Entries) != 2 {
		t.Errorf("out = %+v", out)
	}
}

func TestRemoveEntry(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "save_entry", map[string]any{"type": "faq", "key": "q1", "fields": map[string]any{"question": "a"}})

	r := callTool(t, srv, "remove_entry", map[string]any{"type": "faq", "key": "q1"})
	if r.IsError || resultText(r) != "removed: q1" {
		t.Errorf("remove = %s", resultText(r))
	}
	r = callTool(t, srv, "remove_entry", map[string]any{"type": "faq", "key": "q1"})
	if !r.IsError || !strings.Contains(resultText(r), "not found") {
		t.Errorf("second remove = %s", resultText(r))
	}
}

func TestRemoveEntry_UnsafeKey(t *testing.T) {
	srv, store := testServer(t)
	callTool(t, srv, "save_entry", map[string]any{"type": "faq", "key": "q1", "fields": map[string]any{"question": "a"}})

	for _, key := range []string{"..", "../faq", "."} {
		r := callTool(t, srv, "remove_entry", map[string]any{"type": "contacts", "key": key})
		if !r.IsError || !strings.Contains(resultText(r), "invalid input") {
			t.Errorf("remove %q = %s", key, resultText(r))
		}
	}
	if ok, _ := store.Exists("data/flex-directory/faq.json"); !ok {
		t.Error("faq data removed")
	}
}

func TestListEntries_NegativeOffset(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "save_entry", map[string]any{"type": "faq", "key": "q1", "fields": map[string]any{"question": "a"}})

	r := callTool(t, srv, "list_entries", map[string]any{"type": "faq", "offset": float64(-1), "limit": float64(-3)})
	if r.IsError || !strings.Contains(resultText(r), `"total": 1`) {
		t.Errorf("result = %s", resultText(r))
	}
}

func TestGetEntry_UnknownType(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_entry", map[string]any{"type": "nope", "key": "x"})
	if !r.IsError || !strings.Contains(resultText(r), "unknown directory type") {
		t.Errorf("result = %s", resultText(r))
	}
	r = callTool(t, srv, "get_entry", map[string]any{"type": "faq"})
	if !r.IsError {
		t.Error("expected error for missing key")
	}
}

func TestUploadMedia(t *testing.T) {
	srv, store := testServer(t)
	callTool(t, srv, "save_entry", map[string]any{"type": "contacts", "fields": map[string]any{"slug": "ada"}})

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	r := callTool(t, srv, "upload_media", map[string]any{"type": "contacts", "key": "ada", "content": uri})
	if r.IsError {
		t.Fatalf("upload_media: %s", resultText(r))
	}
	var res uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(res.Name, ".png") || !strings.HasPrefix(res.Path, "data/contacts/ada/") {
		t.Errorf("result = %+v", res)
	}
	if data, _ := store.Read(res.Path); string(data) != "png-bytes" {
		t.Errorf("stored = %q", data)
	}

	r = callTool(t, srv, "upload_media", map[string]any{"type": "contacts", "key": "ada", "content": "not a uri"})
	if !r.IsError {
		t.Error("expected error for non data URI")
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, ext, err := decodeDataURI("data:text/plain;base64,aGVsbG8")
	if err != nil || string(data) != "hello" || ext != ".txt" {
		t.Errorf("got %q %q %v", data, ext, err)
	}
	if _, _, err := decodeDataURI("data:text/plain,hello"); err == nil {
		t.Error("expected error for non-base64 URI")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("../my photo.jpg"); got != "my_photo.jpg" {
		t.Errorf("got %q", got)
	}
}

func TestLayoutResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readLayoutResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("contents = %v, %v", contents, err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != layoutURI || !strings.Contains(tc.Text, "frontmatter.yaml") {
		t.Errorf("resource = %+v", contents[0])
	}
}
