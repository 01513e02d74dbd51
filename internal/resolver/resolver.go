package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jra3/itemfs/internal/store"
)

// Entry is one child of a container purpose: its displayed name and the
// purpose that name resolves to.
type Entry struct {
	Name    string
	Purpose Purpose
}

// Resolver classifies paths against a metadata store (spec §4.2). It holds
// no per-request state; every call is a fresh read against the store.
type Resolver struct {
	store      *store.Store
	toolBinDir string
}

// New builds a Resolver. toolBinDir is the host directory passthrough-ed
// under /bin (the launcher's companion CLI binaries).
func New(s *store.Store, toolBinDir string) *Resolver {
	return &Resolver{store: s, toolBinDir: toolBinDir}
}

// Resolve classifies path, walking from the root and re-deriving each
// component's purpose from its parent's children — the recursive,
// children-driven algorithm of spec §4.2. It never returns an error for an
// ordinary missing path; a dead end resolves to Unknown. Errors are
// reserved for store/host failures while enumerating a parent's children.
func (r *Resolver) Resolve(path string) (Purpose, error) {
	clean := strings.Trim(filepath.Clean("/"+path), "/")
	if clean == "" || clean == "." {
		return Root(), nil
	}

	current := Root()
	for _, part := range strings.Split(clean, "/") {
		if current.Kind == KindPassthrough {
			// Passthrough must resolve even if the entry doesn't exist yet,
			// so file creation under content/ works.
			current = Passthrough(filepath.Join(current.HostPath, part))
			continue
		}

		if current.Kind == KindItemRelationships {
			// Resolve the one named sibling directly rather than enumerating
			// every sibling and taking the first name match: this is the
			// path that must surface a genuine same-name collision instead
			// of silently picking one of the colliding siblings.
			sibling, ok, err := r.store.GetSiblingID(current.ItemID, current.Side, current.RelationshipID, part)
			if err != nil {
				return Purpose{}, err
			}
			if !ok {
				return Unknown(), nil
			}
			current = ItemLink(sibling)
			continue
		}

		children, err := r.Children(current)
		if err != nil {
			return Purpose{}, err
		}

		next, ok := findChild(children, part)
		if !ok {
			return Unknown(), nil
		}
		current = next
	}

	return current, nil
}

func findChild(children []Entry, name string) (Purpose, bool) {
	for _, c := range children {
		if c.Name == name {
			return c.Purpose, true
		}
	}
	return Purpose{}, false
}

// Children enumerates the named children of a container purpose, per the
// table in spec §4.2. Calling it on a non-container purpose is an error.
func (r *Resolver) Children(p Purpose) ([]Entry, error) {
	switch p.Kind {
	case KindRoot:
		return r.rootChildren()
	case KindItemsRoot:
		return r.itemsRootChildren()
	case KindRelationshipsRoot:
		return r.relationshipsRootChildren()
	case KindRelationship:
		return relationshipChildren(p.RelationshipID), nil
	case KindItem:
		return r.itemChildren(p.ItemID)
	case KindItemRelationships:
		return r.itemRelationshipsChildren(p.ItemID, p.RelationshipID, p.Side)
	case KindItemFilters:
		return r.itemFiltersChildren(p.ItemID)
	case KindItemFilterView:
		return r.itemFilterViewChildren(p.ItemID, p.ContextSetID, p.ConditionSetID)
	case KindToolBins:
		return r.toolBinChildren()
	case KindFilter:
		return r.filterChildren(p.ConditionSetID)
	case KindPassthrough:
		return r.passthroughChildren(p.HostPath)
	default:
		return nil, fmt.Errorf("purpose kind %d is not a directory", p.Kind)
	}
}

func (r *Resolver) rootChildren() ([]Entry, error) {
	entries := []Entry{
		{Name: "items", Purpose: ItemsRoot()},
		{Name: "relationships", Purpose: RelationshipsRoot()},
		{Name: "bin", Purpose: ToolBins()},
		{Name: SocketName, Purpose: Socket()},
	}

	filters, err := r.store.GetRootFilters()
	if err != nil {
		return nil, fmt.Errorf("list root filters: %w", err)
	}
	for _, f := range filters {
		entries = append(entries, Entry{Name: f.Name, Purpose: Filter(f.ID)})
	}
	return entries, nil
}

func (r *Resolver) itemsRootChildren() ([]Entry, error) {
	items, err := r.store.GetItems()
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{Name: strconv.FormatInt(int64(item.ID), 10), Purpose: Item(item.ID)})
	}
	return entries, nil
}

func (r *Resolver) relationshipsRootChildren() ([]Entry, error) {
	rels, err := r.store.GetRelationships()
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	entries := make([]Entry, 0, len(rels))
	for _, rel := range rels {
		entries = append(entries, Entry{Name: strconv.FormatInt(int64(rel.ID), 10), Purpose: Relationship(rel.ID)})
	}
	return entries, nil
}

func relationshipChildren(id store.RelationshipID) []Entry {
	return []Entry{
		{Name: "id", Purpose: RelationshipID(id)},
		{Name: "from_name", Purpose: RelationshipFromName(id)},
		{Name: "to_name", Purpose: RelationshipToName(id)},
	}
}

func (r *Resolver) itemChildren(id store.ItemID) ([]Entry, error) {
	item, err := r.store.GetItemByID(id)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}

	entries := []Entry{
		{Name: "content", Purpose: Passthrough(item.ContentPath)},
		{Name: "id", Purpose: ItemID(id)},
		{Name: "name", Purpose: ItemName(id)},
		{Name: "filters", Purpose: ItemFilters(id)},
	}

	// One entry per distinct (relationship_id, side) present on the item;
	// the displayed name labels the *other* side per spec §4.2.
	type slot struct {
		rel  store.RelationshipID
		side store.Side
	}
	seen := map[slot]bool{}
	for _, ir := range item.Relationships {
		key := slot{rel: ir.RelationshipID, side: ir.Side}
		if seen[key] {
			continue
		}
		seen[key] = true

		rel, err := r.store.GetRelationship(ir.RelationshipID)
		if err != nil {
			return nil, fmt.Errorf("load relationship %d: %w", ir.RelationshipID, err)
		}
		label := rel.From
		if ir.Side == store.Source {
			label = rel.To
		}
		entries = append(entries, Entry{
			Name:    label,
			Purpose: ItemRelationships(id, ir.RelationshipID, ir.Side),
		})
	}

	return entries, nil
}

func (r *Resolver) itemRelationshipsChildren(item store.ItemID, rel store.RelationshipID, side store.Side) ([]Entry, error) {
	owner, err := r.store.GetItemByID(item)
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", item, err)
	}

	var entries []Entry
	for _, ir := range owner.Relationships {
		if ir.RelationshipID != rel || ir.Side != side {
			continue
		}
		sibling, err := r.store.GetItemByID(ir.Sibling)
		if err != nil {
			return nil, fmt.Errorf("load sibling item %d: %w", ir.Sibling, err)
		}
		entries = append(entries, Entry{Name: sibling.Name, Purpose: ItemLink(ir.Sibling)})
	}
	return entries, nil
}

func (r *Resolver) itemFiltersChildren(item store.ItemID) ([]Entry, error) {
	filters, err := r.store.GetItemFilters()
	if err != nil {
		return nil, fmt.Errorf("list item filters: %w", err)
	}
	entries := make([]Entry, 0, len(filters))
	for _, f := range filters {
		entries = append(entries, Entry{
			Name:    f.Name,
			Purpose: ItemFilterView(item, f.Context, f.Filter),
		})
	}
	return entries, nil
}

func (r *Resolver) itemFilterViewChildren(item store.ItemID, contextSet, filterSet store.ConditionSetID) ([]Entry, error) {
	matches, err := r.store.RunItemFilter(store.ItemFilter{Context: contextSet, Filter: filterSet}, item)
	if err != nil {
		return nil, fmt.Errorf("evaluate item filter for item %d: %w", item, err)
	}
	entries := make([]Entry, 0, len(matches))
	for _, matchID := range matches {
		matched, err := r.store.GetItemByID(matchID)
		if err != nil {
			return nil, fmt.Errorf("load filtered item %d: %w", matchID, err)
		}
		entries = append(entries, Entry{Name: matched.Name, Purpose: ItemLink(matchID)})
	}
	return entries, nil
}

func (r *Resolver) toolBinChildren() ([]Entry, error) {
	if r.toolBinDir == "" {
		return nil, nil
	}
	hostEntries, err := os.ReadDir(r.toolBinDir)
	if err != nil {
		return nil, fmt.Errorf("list tool bin directory: %w", err)
	}
	entries := make([]Entry, 0, len(hostEntries))
	for _, e := range hostEntries {
		entries = append(entries, Entry{
			Name:    e.Name(),
			Purpose: Passthrough(filepath.Join(r.toolBinDir, e.Name())),
		})
	}
	return entries, nil
}

func (r *Resolver) filterChildren(id store.ConditionSetID) ([]Entry, error) {
	matches, err := r.store.RunRootFilter(id)
	if err != nil {
		return nil, fmt.Errorf("evaluate filter %d: %w", id, err)
	}
	entries := make([]Entry, 0, len(matches))
	for _, itemID := range matches {
		item, err := r.store.GetItemByID(itemID)
		if err != nil {
			return nil, fmt.Errorf("load filtered item %d: %w", itemID, err)
		}
		entries = append(entries, Entry{Name: item.Name, Purpose: ItemLink(itemID)})
	}
	return entries, nil
}

func (r *Resolver) passthroughChildren(hostPath string) ([]Entry, error) {
	hostEntries, err := os.ReadDir(hostPath)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(hostEntries))
	for _, e := range hostEntries {
		entries = append(entries, Entry{
			Name:    e.Name(),
			Purpose: Passthrough(filepath.Join(hostPath, e.Name())),
		})
	}
	return entries, nil
}
