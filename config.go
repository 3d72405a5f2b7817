package fedcollab

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml"

	pkgerrors "github.com/rodneyosodo/fedcollab/pkg/errors"
	"github.com/rodneyosodo/fedcollab/pkg/strategy"
	"github.com/rodneyosodo/fedcollab/round"
)

// Config is the immutable run configuration. It is loaded once, validated
// eagerly and passed by value into every component; nothing mutates it after
// the run starts.
type Config struct {
	Strategy              string           `toml:"strategy"`
	NumUsers              int              `toml:"num_users"`
	AssignedCollaborators map[string][]int `toml:"assigned_collaborators"`
	Rounds                int              `toml:"rounds"`
	StartRound            int              `toml:"start_round"`
	EpochsPerRound        int              `toml:"epochs_per_round"`
	T0                    int              `toml:"t_0"`
	TargetUsersBeforeT0   int              `toml:"target_users_before_t_0"`
	TargetUsersAfterT0    int              `toml:"target_users_after_t_0"`
	ModelKeysToIgnore     []string         `toml:"model_keys_to_ignore"`
	ResultsPath           string           `toml:"results_path"`
	Seed                  int64            `toml:"seed"`
}

// LoadConfig reads and validates a TOML run configuration.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate detects every configuration fault before round execution begins:
// unknown strategy names, missing or out-of-range assigned collaborator
// sets, node counts too small for the chosen topology and target
// collaborator counts exceeding the assigned universe.
func (c Config) Validate() error {
	if c.NumUsers < 1 {
		return fmt.Errorf("num_users must be positive, got %d: %w", c.NumUsers, pkgerrors.ErrInvalidConfig)
	}
	if c.StartRound < 0 {
		return fmt.Errorf("start_round must not be negative, got %d: %w", c.StartRound, pkgerrors.ErrInvalidConfig)
	}
	if c.Rounds <= c.StartRound {
		return fmt.Errorf("rounds (%d) must exceed start_round (%d): %w", c.Rounds, c.StartRound, pkgerrors.ErrInvalidConfig)
	}
	if c.EpochsPerRound < 1 {
		return fmt.Errorf("epochs_per_round must be positive, got %d: %w", c.EpochsPerRound, pkgerrors.ErrInvalidConfig)
	}
	if c.TargetUsersBeforeT0 < 0 || c.TargetUsersAfterT0 < 0 {
		return fmt.Errorf("target collaborator counts must not be negative: %w", pkgerrors.ErrInvalidConfig)
	}

	assigned, err := c.Assigned()
	if err != nil {
		return err
	}
	for id, universe := range assigned {
		for _, peer := range universe {
			if peer < 1 || int(peer) > c.NumUsers {
				return fmt.Errorf("node %d has assigned collaborator %d outside 1..%d: %w",
					id, peer, c.NumUsers, pkgerrors.ErrInvalidConfig)
			}
		}
	}

	if _, err := c.NewStrategy(); err != nil {
		return err
	}

	return nil
}

// Assigned converts the TOML string-keyed collaborator table into NodeID
// keys.
func (c Config) Assigned() (map[round.NodeID][]round.NodeID, error) {
	if c.AssignedCollaborators == nil {
		return nil, nil
	}

	assigned := make(map[round.NodeID][]round.NodeID, len(c.AssignedCollaborators))
	for key, peers := range c.AssignedCollaborators {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("assigned_collaborators key %q is not a node ID: %w", key, pkgerrors.ErrInvalidConfig)
		}
		if id < 1 || id > c.NumUsers {
			return nil, fmt.Errorf("assigned_collaborators key %d outside 1..%d: %w", id, c.NumUsers, pkgerrors.ErrInvalidConfig)
		}

		set := make([]round.NodeID, len(peers))
		for i, p := range peers {
			set[i] = round.NodeID(p)
		}
		assigned[round.NodeID(id)] = set
	}

	return assigned, nil
}

// TargetUsers returns the target collaborator count for a round: one value
// strictly before T0, another at or after it. The switch is a hard step.
func (c Config) TargetUsers(r int) int {
	if r < c.T0 {
		return c.TargetUsersBeforeT0
	}

	return c.TargetUsersAfterT0
}

// NodeIDs lists the client identities in registration order.
func (c Config) NodeIDs() []round.NodeID {
	ids := make([]round.NodeID, c.NumUsers)
	for i := range ids {
		ids[i] = round.NodeID(i + 1)
	}

	return ids
}

// IgnoreKeys returns the tensor names excluded from blending as a set.
func (c Config) IgnoreKeys() map[string]bool {
	keys := make(map[string]bool, len(c.ModelKeysToIgnore))
	for _, k := range c.ModelKeysToIgnore {
		keys[k] = true
	}

	return keys
}

// NewStrategy builds the configured weight strategy, failing fast on any
// configuration fault.
func (c Config) NewStrategy() (strategy.Strategy, error) {
	assigned, err := c.Assigned()
	if err != nil {
		return nil, err
	}

	maxTarget := c.TargetUsersBeforeT0
	if c.TargetUsersAfterT0 > maxTarget {
		maxTarget = c.TargetUsersAfterT0
	}

	return strategy.New(c.Strategy, strategy.Params{
		NumUsers:       c.NumUsers,
		Assigned:       assigned,
		MaxTargetUsers: maxTarget,
		Seed:           c.Seed,
	})
}
