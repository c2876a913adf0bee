package query

/*
	Description:
		Package `query` provides interface for querying mongo db
		This package is basically nothing but wrap https://github.com/mongodb/mongo-go-driver
		so please read document at following link for any detail
		https://godoc.org/go.mongodb.org/mongo-driver/mongo
*/

import (
	"fmt"

	"github.com/artemarket/goapi/base/ctx"
	"github.com/artemarket/goapi/domain"
)

var (
	// ErrNotFound is mongo document not found error
	ErrNotFound = fmt.Errorf("document not found")

	// ErrDuplicateKey is an error when violating unique index
	ErrDuplicateKey = fmt.Errorf("duplicate key")

	// ErrCollScan is error for unindexed query
	ErrCollScan = fmt.Errorf("COLLSCAN is not allowed")
)

type patchOp struct {
	patchMany bool
}

// PatchOp is an alias for functional argument
type PatchOp func(*patchOp)

// WithPatchMany specifies patchMany setting. To patch all entries selected, set patchMany = true.
func WithPatchMany(patchMany bool) PatchOp {
	return func(o *patchOp) {
		o.patchMany = patchMany
	}
}

// UpsertOp is an upsert operation.
type UpsertOp struct {
	Selector interface{}
	Updater  interface{}
}

// Mongo abstract the mongo layer.
type Mongo interface {
	// Insert inserts a new document to the table
	Insert(context ctx.Ctx, table domain.Table, insert interface{}) error

	// FindOne get data from the table
	FindOne(context ctx.Ctx, table domain.Table, query, result interface{}) error

	// Count return counting for matched entry in the table
	Count(context ctx.Ctx, table domain.Table, selector interface{}) (int, error)

	// Upsert updates or inserts the selected document
	Upsert(context ctx.Ctx, table domain.Table, selector, update interface{}) error

	// Search finds documents matching query with offset/limit/sort paging
	Search(context ctx.Ctx, table domain.Table, offset, limit int, sort string, query, results interface{}) error

	// Patch applies a $set update on the selected document(s)
	Patch(context ctx.Ctx, table domain.Table, selector, update interface{}, ops ...PatchOp) error

	// Remove deletes the selected document, ErrNotFound when nothing matched
	Remove(context ctx.Ctx, table domain.Table, selector interface{}) error

	// RemoveAll deletes every document matching selector
	RemoveAll(context ctx.Ctx, table domain.Table, selector interface{}) (int64, error)

	// BulkUpsert performs unordered replace-upserts in one round trip
	BulkUpsert(context ctx.Ctx, table domain.Table, upsertOps []UpsertOp) (matchedCnt int64, modifiedCnt int64, err error)

	// RunWithTransaction runs fn inside a mongo session transaction
	RunWithTransaction(context ctx.Ctx, run func(ctx.Ctx) error) error
}
