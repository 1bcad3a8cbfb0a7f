// Package checkpointer implements saving the state of an experiment to
// disk as training progresses
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects at the end of
// training epochs
type Checkpointer interface {
	// Checkpoint is called after the argument zero-based epoch has
	// finished. The final epoch of an experiment has final set.
	Checkpoint(epoch int, final bool) error
}

// Save gob-encodes object to filename
func Save(filename string, object gob.GobEncoder) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(object); err != nil {
		return fmt.Errorf("save: could not encode checkpoint: %v", err)
	}
	return file.Sync()
}

// Load decodes a checkpoint saved to filename into object
func Load(filename string, object gob.GobDecoder) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open checkpoint file: %v", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode checkpoint: %v", err)
	}
	return nil
}
