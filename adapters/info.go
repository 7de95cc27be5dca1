package adapters

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/openbidder/bidserver/api"
	yaml "gopkg.in/yaml.v2"
)

// ExchangeInfo describes what an exchange integration supports. It is read from
// {infoDir}/{exchange}.yaml.
type ExchangeInfo struct {
	Maintainer *MaintainerInfo `yaml:"maintainer" json:"maintainer"`
	Phases     []api.Phase     `yaml:"phases" json:"phases"`
}

type MaintainerInfo struct {
	Email string `yaml:"email" json:"email"`
}

// ParseExchangeInfo reads the info file of one exchange.
func ParseExchangeInfo(infoDir string, exchange api.Exchange) (ExchangeInfo, error) {
	path := filepath.Join(infoDir, exchange.Name()+".yaml")
	fileData, err := ioutil.ReadFile(path)
	if err != nil {
		return ExchangeInfo{}, fmt.Errorf("error reading from file %s: %v", path, err)
	}

	var parsedInfo ExchangeInfo
	if err := yaml.Unmarshal(fileData, &parsedInfo); err != nil {
		return ExchangeInfo{}, fmt.Errorf("error parsing yaml in file %s: %v", path, err)
	}
	for _, phase := range parsedInfo.Phases {
		if !isPhase(phase) {
			return ExchangeInfo{}, fmt.Errorf("unknown phase %q in file %s", phase, path)
		}
	}
	return parsedInfo, nil
}

// Supports reports whether the exchange sends callouts of the given phase. An info without phases
// supports all of them.
func (info ExchangeInfo) Supports(phase api.Phase) bool {
	if len(info.Phases) == 0 {
		return true
	}
	for i := 0; i < len(info.Phases); i++ {
		if phase == info.Phases[i] {
			return true
		}
	}
	return false
}

func isPhase(p api.Phase) bool {
	for _, known := range api.Phases() {
		if p == known {
			return true
		}
	}
	return false
}
