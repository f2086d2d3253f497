package kinematics

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ChainConfigJSON represents all supported fields in a chain description
// file:
//
//	{
//	    "name": "gaze",
//	    "joints": [
//	        {"d": 40.0, "alpha": 1.5708, "r": 0.0},
//	        {"d": 0.0, "alpha": -1.5708, "r": 25.0}
//	    ]
//	}
//
// Joints are listed base first; angles are radians, lengths are whatever
// unit the rest of the application uses.
type ChainConfigJSON struct {
	Name   string         `json:"name"`
	Joints []DHParameters `json:"joints"`
}

// UnmarshalChainJSON parses the given JSON data into a chain with all
// angles at zero.
func UnmarshalChainJSON(jsonData []byte) (*Chain, error) {
	var cfg ChainConfigJSON
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal chain json")
	}
	if len(cfg.Joints) == 0 {
		return nil, ErrNoChainInformation
	}
	return NewChain(cfg.Joints), nil
}

// ParseChainJSONFile reads a chain description file and parses the
// contained JSON data.
func ParseChainJSONFile(filename string) (*Chain, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chain json file")
	}
	return UnmarshalChainJSON(jsonData)
}
