// Package config provides the application configuration: cluster access,
// queue submission and module lines used when rendering batch scripts.
package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Config represents the application configuration.
type Config struct {
	// Cluster access. An empty ClusterHost means jobs run on this machine.
	ClusterHost string
	ClusterUser string
	ClusterPort int
	SSHKey      string
	KnownHosts  string

	// Queue submission
	SubmitCommand string // e.g. "sbatch"
	SlurmTime     string // --time for generated scripts
	SlurmCPUs     int    // --cpus-per-task for generated scripts

	// Refinement
	RefineEngine string // engine used when no sentinel file is present
	SentinelFile string // presence in a sample directory selects buster
	CyclePrefix  string // prefix of cycle-numbered subdirectories
	ScriptDir    string // directory scripts are written to, relative to the project
	ScriptFormat string // "sh" or "bat"

	// Environment modules loaded by generated scripts
	CCP4Module   string
	BusterModule string
	PhenixModule string
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	scriptFormat := "sh"
	if runtime.GOOS == "windows" {
		scriptFormat = "bat"
	}
	return &Config{
		ClusterPort:   22,
		SubmitCommand: "sbatch",
		SlurmTime:     "10:00:00",
		SlurmCPUs:     1,
		RefineEngine:  "refmac",
		SentinelFile:  ".use_buster",
		CyclePrefix:   "Refine_",
		ScriptDir:     "scripts",
		ScriptFormat:  scriptFormat,
		CCP4Module:    "module load gopresto CCP4",
		BusterModule:  "module load gopresto BUSTER",
		PhenixModule:  "module load gopresto Phenix",
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	// Parse key-value pairs
	for i, record := range records {
		if i == 0 {
			// Skip header row if it looks like a header
			if len(record) >= 2 && strings.ToLower(record[0]) == "key" {
				continue
			}
		}

		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		switch key {
		case "cluster_host":
			cfg.ClusterHost = value
		case "cluster_user":
			cfg.ClusterUser = value
		case "cluster_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ClusterPort = v
			}
		case "ssh_key":
			cfg.SSHKey = value
		case "known_hosts":
			cfg.KnownHosts = value
		case "submit_command":
			cfg.SubmitCommand = value
		case "slurm_time":
			cfg.SlurmTime = value
		case "slurm_cpus":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.SlurmCPUs = v
			}
		case "refine_engine":
			cfg.RefineEngine = value
		case "sentinel_file":
			cfg.SentinelFile = value
		case "cycle_prefix":
			cfg.CyclePrefix = value
		case "script_dir":
			cfg.ScriptDir = value
		case "script_format":
			cfg.ScriptFormat = strings.ToLower(value)
		case "ccp4_module":
			cfg.CCP4Module = value
		case "buster_module":
			cfg.BusterModule = value
		case "phenix_module":
			cfg.PhenixModule = value
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file
func SaveConfigCSV(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, record := range cfg.Records() {
		// Only write non-empty values to keep file clean
		if record[1] == "" || record[1] == "0" {
			continue
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	return nil
}

// Records returns the configuration as key,value pairs in file order.
func (c *Config) Records() [][]string {
	return [][]string{
		{"cluster_host", c.ClusterHost},
		{"cluster_user", c.ClusterUser},
		{"cluster_port", strconv.Itoa(c.ClusterPort)},
		{"ssh_key", c.SSHKey},
		{"known_hosts", c.KnownHosts},
		{"submit_command", c.SubmitCommand},
		{"slurm_time", c.SlurmTime},
		{"slurm_cpus", strconv.Itoa(c.SlurmCPUs)},
		{"refine_engine", c.RefineEngine},
		{"sentinel_file", c.SentinelFile},
		{"cycle_prefix", c.CyclePrefix},
		{"script_dir", c.ScriptDir},
		{"script_format", c.ScriptFormat},
		{"ccp4_module", c.CCP4Module},
		{"buster_module", c.BusterModule},
		{"phenix_module", c.PhenixModule},
	}
}

// Validate checks the settings that generated scripts depend on.
func (c *Config) Validate() error {
	if c.SubmitCommand == "" {
		return fmt.Errorf("submit_command must not be empty")
	}
	if c.ScriptFormat != "sh" && c.ScriptFormat != "bat" {
		return fmt.Errorf("script_format must be \"sh\" or \"bat\", got %q", c.ScriptFormat)
	}
	if c.CyclePrefix == "" {
		return fmt.Errorf("cycle_prefix must not be empty")
	}
	if c.ClusterHost != "" && (c.ClusterPort <= 0 || c.ClusterPort > 65535) {
		return fmt.Errorf("cluster_port %d out of range", c.ClusterPort)
	}
	return nil
}

// Remote reports whether jobs are submitted over SSH.
func (c *Config) Remote() bool {
	return c.ClusterHost != ""
}
