// Package resolver implements the path-resolution engine (spec §4.2): it
// classifies a POSIX path against the metadata store into a typed
// PathPurpose, and enumerates the children of any container purpose so the
// FUSE adapter can answer readdir without knowing the store's schema.
package resolver

import (
	"github.com/jra3/itemfs/internal/store"
)

// Kind discriminates the PathPurpose variants of spec §4.2.
type Kind int

const (
	KindUnknown Kind = iota
	KindRoot
	KindItemsRoot
	KindRelationshipsRoot
	KindToolBins
	KindSocket
	KindItem
	KindItemID
	KindItemName
	KindRelationship
	KindRelationshipID
	KindRelationshipFromName
	KindRelationshipToName
	KindItemRelationships
	KindItemLink
	KindPassthrough
	KindFilter
	KindItemFilters
	KindItemFilterView
)

// SocketName is the control-channel file's name at the filesystem root.
const SocketName = ".api_handle"

// Purpose is the classification of a single path. It is a closed tagged
// union over Kind; only the fields relevant to a given Kind are populated.
type Purpose struct {
	Kind Kind

	ItemID         store.ItemID
	RelationshipID store.RelationshipID
	Side           store.Side
	ConditionSetID store.ConditionSetID
	ContextSetID   store.ConditionSetID
	HostPath       string
}

func Root() Purpose              { return Purpose{Kind: KindRoot} }
func ItemsRoot() Purpose         { return Purpose{Kind: KindItemsRoot} }
func RelationshipsRoot() Purpose { return Purpose{Kind: KindRelationshipsRoot} }
func ToolBins() Purpose          { return Purpose{Kind: KindToolBins} }
func Socket() Purpose            { return Purpose{Kind: KindSocket} }
func Unknown() Purpose           { return Purpose{Kind: KindUnknown} }

func Item(id store.ItemID) Purpose     { return Purpose{Kind: KindItem, ItemID: id} }
func ItemID(id store.ItemID) Purpose   { return Purpose{Kind: KindItemID, ItemID: id} }
func ItemName(id store.ItemID) Purpose { return Purpose{Kind: KindItemName, ItemID: id} }

func Relationship(id store.RelationshipID) Purpose {
	return Purpose{Kind: KindRelationship, RelationshipID: id}
}
func RelationshipID(id store.RelationshipID) Purpose {
	return Purpose{Kind: KindRelationshipID, RelationshipID: id}
}
func RelationshipFromName(id store.RelationshipID) Purpose {
	return Purpose{Kind: KindRelationshipFromName, RelationshipID: id}
}
func RelationshipToName(id store.RelationshipID) Purpose {
	return Purpose{Kind: KindRelationshipToName, RelationshipID: id}
}

func ItemRelationships(item store.ItemID, rel store.RelationshipID, side store.Side) Purpose {
	return Purpose{Kind: KindItemRelationships, ItemID: item, RelationshipID: rel, Side: side}
}

func ItemLink(sibling store.ItemID) Purpose {
	return Purpose{Kind: KindItemLink, ItemID: sibling}
}

func Passthrough(hostPath string) Purpose {
	return Purpose{Kind: KindPassthrough, HostPath: hostPath}
}

func Filter(id store.ConditionSetID) Purpose {
	return Purpose{Kind: KindFilter, ConditionSetID: id}
}

// ItemFilters is the per-item "filters" container (spec §3's ItemFilter
// description), listing one subdirectory per item filter in the store; the
// same set of filters is listed under every item.
func ItemFilters(item store.ItemID) Purpose {
	return Purpose{Kind: KindItemFilters, ItemID: item}
}

// ItemFilterView is a single named item-filter view evaluated in the
// context of item: its children are the items matching filterSet when
// item satisfies contextSet.
func ItemFilterView(item store.ItemID, contextSet, filterSet store.ConditionSetID) Purpose {
	return Purpose{Kind: KindItemFilterView, ItemID: item, ContextSetID: contextSet, ConditionSetID: filterSet}
}

// IsDir reports whether purpose denotes a directory-typed node (spec §4.2
// filetype derivation: all container purposes are directories).
func (p Purpose) IsDir() bool {
	switch p.Kind {
	case KindRoot, KindItemsRoot, KindRelationshipsRoot, KindToolBins,
		KindItem, KindRelationship, KindItemRelationships, KindFilter,
		KindItemFilters, KindItemFilterView:
		return true
	case KindPassthrough:
		// Passthrough directory-ness is determined by the host stat, not
		// by the purpose alone; callers must stat HostPath themselves.
		return false
	default:
		return false
	}
}

// IsSymlink reports whether purpose renders as a symlink.
func (p Purpose) IsSymlink() bool {
	return p.Kind == KindItemLink
}

// IsMetadataFile reports whether purpose is one of the synthesized
// regular-file metadata nodes rendered fresh on every read.
func (p Purpose) IsMetadataFile() bool {
	switch p.Kind {
	case KindItemID, KindItemName, KindRelationshipID, KindRelationshipFromName, KindRelationshipToName:
		return true
	default:
		return false
	}
}
