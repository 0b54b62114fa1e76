package engine

import (
	"context"

	"github.com/peak-solution/openatfx-sub003/internal/model"
	"github.com/peak-solution/openatfx-sub003/internal/value"
)

// InstanceStore is the read-only view of instance data the engine needs.
//
// Attribute and relation lookup go through the returned *model.Element
// (Attribute, Relation), which return nil rather than an error so callers
// can try an attribute, then a relation.
//
// Implementations must be safe for concurrent reads and must present a
// consistent view for the duration of one Evaluate call.
type InstanceStore interface {
	// Element resolves an element by name. Unknown names are NotFound.
	Element(ctx context.Context, name string) (*model.Element, error)

	// ElementByID resolves an element by id. Unknown ids are NotFound.
	ElementByID(ctx context.Context, id int64) (*model.Element, error)

	// Instances returns the instance ids of an element in insertion order.
	Instances(ctx context.Context, elementID int64) ([]int64, error)

	// RelatedIDs returns the target instance ids linked from one instance
	// over rel, in insertion order.
	RelatedIDs(ctx context.Context, elementID, instanceID int64, rel *model.Relation) ([]int64, error)

	// Values returns the values of one attribute for ids, aligned with ids.
	// Instances without a stored value yield an absent value.
	Values(ctx context.Context, elementID int64, attribute string, ids []int64) ([]value.Value, error)
}
