package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/samuelfneumann/godqn/agent"
	"gonum.org/v1/gonum/mat"
)

// GobEncode implements the gob.GobEncoder interface. Only the weights
// of the network are encoded.
func (q *QNetwork) GobEncode() ([]byte, error) {
	raw := make(map[string][]byte)
	for name, w := range q.Weights() {
		data, err := w.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("gobEncode: could not marshal %v: %v",
				name, err)
		}
		raw[name] = data
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("gobEncode: %v", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// weights must match the architecture of the network they are decoded
// into.
func (q *QNetwork) GobDecode(data []byte) error {
	var raw map[string][]byte
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}

	weights := make(agent.Weights, len(raw))
	for name, b := range raw {
		var w mat.Dense
		if err := w.UnmarshalBinary(b); err != nil {
			return fmt.Errorf("gobDecode: could not unmarshal %v: %v",
				name, err)
		}
		weights[name] = &w
	}

	if err := q.SetWeights(weights); err != nil {
		return fmt.Errorf("gobDecode: %v", err)
	}
	return nil
}
