package resolver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jra3/itemfs/internal/store"
)

// RenderMetadata renders a metadata-file purpose's content as it would be
// read: UTF-8 text with a trailing newline, recomputed fresh on every call
// rather than cached per handle (spec §4.3).
func (r *Resolver) RenderMetadata(p Purpose) (string, error) {
	switch p.Kind {
	case KindItemID:
		return fmt.Sprintf("%d\n", int64(p.ItemID)), nil

	case KindItemName:
		item, err := r.store.GetItemByID(p.ItemID)
		if err != nil {
			// The item disappeared between resolution and read; render
			// empty rather than failing the read.
			return "\n", nil
		}
		return item.Name + "\n", nil

	case KindRelationshipID:
		return fmt.Sprintf("%d\n", int64(p.RelationshipID)), nil

	case KindRelationshipFromName:
		rel, err := r.store.GetRelationship(p.RelationshipID)
		if err != nil {
			return "\n", nil
		}
		return rel.From + "\n", nil

	case KindRelationshipToName:
		rel, err := r.store.GetRelationship(p.RelationshipID)
		if err != nil {
			return "\n", nil
		}
		return rel.To + "\n", nil

	default:
		return "", fmt.Errorf("purpose kind %d has no metadata content", p.Kind)
	}
}

// Readlink computes the relative symlink target for an ItemLink purpose
// resolved at fullPath: "../" repeated once per named path segment above
// the link itself (the root does not count), then "items/<id>". The link traverses
// up to the root and back down into the target item's canonical directory
// regardless of which relationship or filter view it was reached through.
func Readlink(fullPath string, target store.ItemID) string {
	segments := strings.Split(strings.Trim(fullPath, "/"), "/")
	ups := len(segments) - 1
	if ups < 0 {
		ups = 0
	}
	return strings.Repeat("../", ups) + "items/" + strconv.FormatInt(int64(target), 10)
}
