package metaindex

import "errors"

var (
	// ErrInvalidMetaMarker is returned when index.META's header does not
	// begin with the literal ASCII "META".
	ErrInvalidMetaMarker = errors.New("metaindex: invalid marker")

	// ErrOutOfBounds is returned by Position/Truncate for an index outside
	// [Base, Head).
	ErrOutOfBounds = errors.New("metaindex: index out of bounds")

	// ErrTruncateCommitted is returned by Truncate when the target index is
	// at or below the current commit index.
	ErrTruncateCommitted = errors.New("metaindex: cannot truncate committed prefix")

	// ErrOutOfOrderCommit is returned by Commit when index is not exactly
	// one past the current commit index.
	ErrOutOfOrderCommit = errors.New("metaindex: out-of-order commit")

	// ErrOutOfOrderSegment is returned by Append when segmentID regresses
	// behind CurrentSegment.
	ErrOutOfOrderSegment = errors.New("metaindex: out-of-order segment")

	// ErrClosed is returned by Append, Commit, Position, Truncate, Compact
	// and Archive on a closed Manager.
	ErrClosed = errors.New("metaindex: closed")
)
