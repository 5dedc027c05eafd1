package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/valuepool/pkg/config"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	return LoadFrom(path, config.BacktestConfig{})
}

// LoadFrom is Load over DefaultFrom(env)
func LoadFrom(path string, env config.BacktestConfig) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := ParseFrom(data, env)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes YAML over Default(), so omitted sections keep their defaults
func Parse(data []byte) (*Config, error) {
	return ParseFrom(data, config.BacktestConfig{})
}

// ParseFrom decodes YAML over DefaultFrom(env)
func ParseFrom(data []byte, env config.BacktestConfig) (*Config, error) {
	cfg := DefaultFrom(env)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewRunSnapshot records what a backtest run was computed from
func NewRunSnapshot(cfg *Config, yamlData []byte, dataSource string) (*RunSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	if yamlData == nil {
		if yamlData, err = yaml.Marshal(cfg); err != nil {
			return nil, err
		}
	}

	return &RunSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		StrategyID: cfg.Meta.StrategyID,
		DataSource: dataSource,
		CreatedAt:  time.Now(),
	}, nil
}
