package wal

import "errors"

// ErrClosed is returned by Write, Truncate, Recover, Compact and Archive
// once Close has completed. Commit, CommitUpTo and GetEntry on a closed WAL
// fail with the wrapped metaindex.ErrClosed instead.
var ErrClosed = errors.New("wal: closed")

// ErrAlreadyCommitted is returned by CommitUpTo when index is already at
// or below the current commit index.
var ErrAlreadyCommitted = errors.New("wal: already committed")

// Component-level errors (segment.ErrCorruptEntry, segment.ErrUnexpectedEOF,
// segment.ErrNoCurrentEntry, entrycodec.ErrUnknownType, walio.ErrShortWrite,
// metaindex.ErrOutOfBounds, metaindex.ErrTruncateCommitted,
// metaindex.ErrOutOfOrderCommit, metaindex.ErrOutOfOrderSegment, and
// metaindex.ErrInvalidMetaMarker) are not re-declared here; they are
// returned wrapped with %w and context, so compare against them with
// errors.Is rather than a coordinator-level alias.
