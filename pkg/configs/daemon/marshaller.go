package daemon

import (
	"os"

	"gopkg.in/yaml.v3"
)

// load daemon config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *DaemonConfig, error:
//
//	When loading success, returns `(*DaemonConfig, nil)`.
//	Otherwise, returns `(nil, error)`.
func LoadDaemonConfig(filepath string) (*DaemonConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (out *DaemonConfig, err error) {
	var _out *DaemonConfigMarshall
	err = yaml.Unmarshal(conf, &_out)
	if err != nil {
		return nil, err
	}
	out = TrySeal(_out)
	return out, nil
}
