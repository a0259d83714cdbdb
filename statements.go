package docengine

import "github.com/bobboyms/docengine/internal/indexengine"

// The structs below are the BSON-encoded bodies walmgr.Manager.Append
// stores inside each WAL record's envelope, generalizing diskmgr's own
// "persist the document as JSON text" idiom (internal/diskmgr/manager.go's
// AppendDocument) to every statement kind a WAL record can carry. Replay
// decodes the matching body with walmgr.DecodeBody and re-executes the
// statement through the same commit path, short-circuited to skip the
// WAL write it would otherwise re-issue (see load.go's Load).

// docEntry is one document's WAL-carried form: its id (redundant with
// the JSON body's "/_id" but kept alongside for cheap replay indexing)
// and its JSON encoding.
type docEntry struct {
	DocID string `bson:"doc_id"`
	JSON  string `bson:"json"`
}

type insertOneBody struct {
	Doc docEntry `bson:"doc"`
}

type insertManyBody struct {
	Docs []docEntry `bson:"docs"`
}

type deleteBody struct {
	Filter Filter `bson:"filter"`
	Limit  int64  `bson:"limit"`
}

type updateBody struct {
	Filter     Filter `bson:"filter"`
	UpdateJSON string `bson:"update_json"`
	Upsert     bool   `bson:"upsert"`
	Limit      int64  `bson:"limit"`
}

type createIndexBody struct {
	Name    string                  `bson:"name"`
	Keys    []string                `bson:"keys"`
	Compare indexengine.CompareKind `bson:"compare"`
	Kind    indexengine.IndexKind   `bson:"kind"`
	Unique  bool                    `bson:"unique"`
}

type dropIndexBody struct {
	Name string `bson:"name"`
}
