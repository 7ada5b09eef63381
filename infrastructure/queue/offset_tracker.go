package queue

// offsetTracker decides when a partition's committed offset may advance.
// Kafka commits are cumulative per partition: committing offset N marks
// everything below N consumed. With several worker slots holding messages
// from the same partition, completing a later offset first must therefore
// not move the committed offset past an earlier one still being processed.
// The tracker releases only the contiguous prefix of completed offsets.
type offsetTracker struct {
	pending map[string][]int64
	done    map[string]map[int64]bool
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{
		pending: make(map[string][]int64),
		done:    make(map[string]map[int64]bool),
	}
}

// track records an offset handed out to a worker slot. Offsets arrive in
// delivery order per partition.
func (t *offsetTracker) track(partition string, offset int64) {
	t.pending[partition] = append(t.pending[partition], offset)
}

// complete marks an offset as finished (acked or dead-lettered) and reports
// the next offset to commit if the completed prefix advanced. Completing an
// offset that is no longer tracked (stale after a rewind) is a no-op.
func (t *offsetTracker) complete(partition string, offset int64) (int64, bool) {
	tracked := false
	for _, o := range t.pending[partition] {
		if o == offset {
			tracked = true
			break
		}
	}
	if !tracked {
		return 0, false
	}

	if t.done[partition] == nil {
		t.done[partition] = make(map[int64]bool)
	}
	t.done[partition][offset] = true

	pend := t.pending[partition]
	var next int64
	advanced := false
	for len(pend) > 0 && t.done[partition][pend[0]] {
		next = pend[0] + 1
		delete(t.done[partition], pend[0])
		pend = pend[1:]
		advanced = true
	}
	t.pending[partition] = pend
	return next, advanced
}

// rewind drops tracking for offset and everything after it on the partition.
// The seek back to offset redelivers all of them, so stale completions for
// dropped offsets must not advance the commit.
func (t *offsetTracker) rewind(partition string, offset int64) {
	pend := t.pending[partition]
	kept := pend[:0]
	for _, o := range pend {
		if o < offset {
			kept = append(kept, o)
		} else {
			delete(t.done[partition], o)
		}
	}
	t.pending[partition] = kept
}
