package store

// File mirrors the files table: one row per indexed repo-relative path.
type File struct {
	ID          int64
	Path        string
	MTime       int64
	Size        int64
	LineCount   int
	ContentHash string
	IndexedAt   int64
	FileType    string
}

// Token mirrors the tokens table. DF is the number of distinct files
// containing the token, recomputed per reindex of containing files.
type Token struct {
	ID   int64
	Text string
	Kind string
	DF   int
}

// Posting mirrors the postings table: (token, file) -> tf + line list.
type Posting struct {
	TokenID int64
	FileID  int64
	TF      int
	Lines   []int32
}

// Block mirrors the blocks table.
type Block struct {
	ID            int64
	FileID        int64
	Kind          string
	Level         int
	LineStart     int
	LineEnd       int
	ParentID      int64 // 0 means root (no parent)
	EligibleCount int
}

// CoocCell mirrors a co-occurrence table row for one (model, token,
// context) pair.
type CoocCell struct {
	ModelID   int
	TokenID   int64
	ContextID int64
	Count     int64
}

// Neighbor mirrors the neighbors table: top-K per (model, token).
// Similarity is quantized to [0, 65535].
type Neighbor struct {
	ModelID    int
	TokenID    int64
	NeighborID int64
	Similarity uint16
}

// Model ids for the two co-occurrence models.
const (
	ModelLine  = 0
	ModelScope = 1
)

// FeedbackEvent mirrors the feedback_events table.
type FeedbackEvent struct {
	ID        int64
	ResultID  string
	Kind      string
	Note      string
	CreatedAt int64
}
