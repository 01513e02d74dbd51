package resolver

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jra3/itemfs/internal/store"
)

func openTestResolver(t *testing.T) (*Resolver, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, ""), s
}

func TestResolveRoot(t *testing.T) {
	r, _ := openTestResolver(t)

	p, err := r.Resolve("/")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.Kind != KindRoot {
		t.Errorf("Kind = %v, want KindRoot", p.Kind)
	}
}

func TestResolveFixedTopLevelNames(t *testing.T) {
	r, _ := openTestResolver(t)

	cases := map[string]Kind{
		"items":         KindItemsRoot,
		"relationships": KindRelationshipsRoot,
		"bin":           KindToolBins,
		SocketName:      KindSocket,
	}
	for path, want := range cases {
		p, err := r.Resolve(path)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", path, err)
		}
		if p.Kind != want {
			t.Errorf("Resolve(%q).Kind = %v, want %v", path, p.Kind, want)
		}
	}
}

func TestResolveUnknownPath(t *testing.T) {
	r, _ := openTestResolver(t)

	p, err := r.Resolve("/does/not/exist")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.Kind != KindUnknown {
		t.Errorf("Kind = %v, want KindUnknown", p.Kind)
	}
}

func TestResolveItemAndMetadataFiles(t *testing.T) {
	r, s := openTestResolver(t)

	id, err := s.CreateItem("widget")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	itemPath := "/items/" + itoa(id)

	p, err := r.Resolve(itemPath)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", itemPath, err)
	}
	if p.Kind != KindItem || p.ItemID != id {
		t.Errorf("Resolve(%q) = %+v, want Item(%v)", itemPath, p, id)
	}

	idPath, err := r.Resolve(itemPath + "/id")
	if err != nil {
		t.Fatalf("Resolve id file failed: %v", err)
	}
	if idPath.Kind != KindItemID {
		t.Errorf("Kind = %v, want KindItemID", idPath.Kind)
	}
	content, err := r.RenderMetadata(idPath)
	if err != nil {
		t.Fatalf("RenderMetadata failed: %v", err)
	}
	if content != itoa(id)+"\n" {
		t.Errorf("id content = %q, want %q", content, itoa(id)+"\n")
	}

	namePath, err := r.Resolve(itemPath + "/name")
	if err != nil {
		t.Fatalf("Resolve name file failed: %v", err)
	}
	nameContent, err := r.RenderMetadata(namePath)
	if err != nil {
		t.Fatalf("RenderMetadata failed: %v", err)
	}
	if nameContent != "widget\n" {
		t.Errorf("name content = %q, want %q", nameContent, "widget\n")
	}
}

func TestResolveItemContentIsPassthrough(t *testing.T) {
	r, s := openTestResolver(t)

	id, err := s.CreateItem("widget")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	p, err := r.Resolve("/items/" + itoa(id) + "/content")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.Kind != KindPassthrough {
		t.Errorf("Kind = %v, want KindPassthrough", p.Kind)
	}

	if _, err := os.Stat(p.HostPath); err != nil {
		t.Errorf("passthrough host path does not exist: %v", err)
	}
}

func TestPassthroughResolvesMissingEntries(t *testing.T) {
	r, s := openTestResolver(t)

	id, err := s.CreateItem("widget")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	p, err := r.Resolve("/items/" + itoa(id) + "/content/not-yet-created.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.Kind != KindPassthrough {
		t.Fatalf("Kind = %v, want KindPassthrough even for a nonexistent file", p.Kind)
	}

	item, err := s.GetItemByID(id)
	if err != nil {
		t.Fatalf("GetItemByID failed: %v", err)
	}
	want := filepath.Join(item.ContentPath, "not-yet-created.txt")
	if p.HostPath != want {
		t.Errorf("HostPath = %q, want %q", p.HostPath, want)
	}
}

func TestResolveRelationshipDirectoryAndLabels(t *testing.T) {
	r, s := openTestResolver(t)

	parent, err := s.CreateItem("parent-item")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	child, err := s.CreateItem("child-item")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	rel, err := s.AddRelationship("parents", "children")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if err := s.AddItemRelationship(rel, parent, child); err != nil {
		t.Fatalf("AddItemRelationship failed: %v", err)
	}

	// parent is on the Source side; its label is the relationship's To name.
	children, err := r.Children(Item(parent))
	if err != nil {
		t.Fatalf("Children(Item(parent)) failed: %v", err)
	}
	if !hasEntry(children, "children") {
		t.Errorf("expected a %q entry among %v", "children", names(children))
	}

	// child is on the Dest side; its label is the relationship's From name.
	childChildren, err := r.Children(Item(child))
	if err != nil {
		t.Fatalf("Children(Item(child)) failed: %v", err)
	}
	if !hasEntry(childChildren, "parents") {
		t.Errorf("expected a %q entry among %v", "parents", names(childChildren))
	}

	linkChildren, err := r.Children(ItemRelationships(parent, rel, store.Source))
	if err != nil {
		t.Fatalf("Children(ItemRelationships) failed: %v", err)
	}
	if len(linkChildren) != 1 || linkChildren[0].Name != "child-item" {
		t.Errorf("ItemRelationships children = %v, want [child-item]", names(linkChildren))
	}
	if linkChildren[0].Purpose.Kind != KindItemLink || linkChildren[0].Purpose.ItemID != child {
		t.Errorf("link purpose = %+v, want ItemLink(%v)", linkChildren[0].Purpose, child)
	}
}

func TestResolveItemRelationshipSiblingByName(t *testing.T) {
	r, s := openTestResolver(t)

	parent, err := s.CreateItem("parent-item")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	child, err := s.CreateItem("child-item")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	rel, err := s.AddRelationship("parents", "children")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if err := s.AddItemRelationship(rel, parent, child); err != nil {
		t.Fatalf("AddItemRelationship failed: %v", err)
	}

	path := "/items/" + strconv.FormatInt(int64(parent), 10) + "/children/child-item"
	got, err := r.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", path, err)
	}
	if got.Kind != KindItemLink || got.ItemID != child {
		t.Errorf("Resolve(%q) = %+v, want ItemLink(%v)", path, got, child)
	}

	missing := "/items/" + strconv.FormatInt(int64(parent), 10) + "/children/nobody"
	got, err = r.Resolve(missing)
	if err != nil {
		t.Fatalf("Resolve(%q) failed: %v", missing, err)
	}
	if got.Kind != KindUnknown {
		t.Errorf("Resolve(%q) = %+v, want Unknown", missing, got)
	}
}

func TestResolveItemRelationshipSiblingNameCollisionPanics(t *testing.T) {
	r, s := openTestResolver(t)

	parent, err := s.CreateItem("parent-item")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	childA, err := s.CreateItem("dup")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	childB, err := s.CreateItem("dup")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	rel, err := s.AddRelationship("parents", "children")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if err := s.AddItemRelationship(rel, parent, childA); err != nil {
		t.Fatalf("AddItemRelationship failed: %v", err)
	}
	if err := s.AddItemRelationship(rel, parent, childB); err != nil {
		t.Fatalf("AddItemRelationship failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected Resolve to panic on a duplicate sibling name")
		}
	}()
	path := "/items/" + strconv.FormatInt(int64(parent), 10) + "/children/dup"
	r.Resolve(path)
}

func TestResolveRootFilter(t *testing.T) {
	r, s := openTestResolver(t)

	a, err := s.CreateItem("has-parent")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	orphan, err := s.CreateItem("orphan")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	parent, err := s.CreateItem("parent")
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}
	rel, err := s.AddRelationship("parent", "child")
	if err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if err := s.AddItemRelationship(rel, parent, a); err != nil {
		t.Fatalf("AddItemRelationship failed: %v", err)
	}
	if _, err := s.AddRootFilter("orphans", []store.Condition{
		store.CondNoRelationship(store.Dest, rel),
	}); err != nil {
		t.Fatalf("AddRootFilter failed: %v", err)
	}

	p, err := r.Resolve("/orphans")
	if err != nil {
		t.Fatalf("Resolve(/orphans) failed: %v", err)
	}
	if p.Kind != KindFilter {
		t.Fatalf("Kind = %v, want KindFilter", p.Kind)
	}

	children, err := r.Children(p)
	if err != nil {
		t.Fatalf("Children(filter) failed: %v", err)
	}
	if !hasEntry(children, "orphan") {
		t.Errorf("expected %q in filter view, got %v", "orphan", names(children))
	}
}

func TestReadlinkFormula(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/a/b", "../items/7"},
		{"/a/b/c", "../../items/7"},
		{"/a/b/c/d", "../../../items/7"},
	}
	for _, c := range cases {
		got := Readlink(c.path, store.ItemID(7))
		if got != c.want {
			t.Errorf("Readlink(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func hasEntry(entries []Entry, name string) bool {
	for _, e := range entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func itoa(id store.ItemID) string {
	return strconv.FormatInt(int64(id), 10)
}
