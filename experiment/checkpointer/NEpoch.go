package checkpointer

import "fmt"

// nEpoch implements checkpointing every N epochs
type nEpoch struct {
	interval int
	object   Serializable // Object to save

	// filename returns the filename of the file to save the object in.
	//
	// If each serialized object should be saved in a separate file with
	// each file having an incremented number as a suffix (e.g.
	// file1.bin, file2.bin, ..., fileK.bin), then simply use the
	// static function FilenameEnumerator. Otherwise, FixedFilename
	// overwrites the same file at each checkpoint.
	filename func() string
}

// NewNEpoch returns a checkpointer that checkpoints every n epochs and
// after the final epoch. If n is 0, only the final epoch is
// checkpointed.
func NewNEpoch(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n < 0 {
		return nil, fmt.Errorf("newNEpoch: interval must be non-negative "+
			"\n\thave(%v)", n)
	}
	return &nEpoch{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the Checkpointer's tracked object if the epoch is
// due for a checkpoint
func (n *nEpoch) Checkpoint(epoch int, final bool) error {
	due := n.interval > 0 && (epoch+1)%n.interval == 0
	if !due && !final {
		return nil
	}

	if err := Save(n.filename(), n.object); err != nil {
		return fmt.Errorf("checkpoint: epoch %v: %v", epoch, err)
	}
	return nil
}
