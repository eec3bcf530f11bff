package descriptors

import "fmt"

//TreeParams collect the hyperparameters shared by all nodes of a tree.
type TreeParams struct {
	MaxLength      int     `json:"max_length" mapstructure:"max_length"`
	MinNumSamples  int     `json:"min_num_samples" mapstructure:"min_num_samples"`
	Regularization float64 `json:"regularization" mapstructure:"regularization"`
	DeltaT         float64 `json:"delta_t" mapstructure:"delta_t"`
	AllowSets      bool    `json:"allow_sets" mapstructure:"allow_sets"`
	GridFactor     float64 `json:"grid_factor" mapstructure:"grid_factor"`
	CheckShards    bool    `json:"check_shards,omitempty" mapstructure:"check_shards"`
}

//DefaultTreeParams returns the hyperparameters used when nothing else is configured.
func DefaultTreeParams() TreeParams {
	return TreeParams{
		MaxLength:      3,
		MinNumSamples:  1,
		Regularization: 0.0,
		AllowSets:      true,
		GridFactor:     1.0,
	}
}

//Validate reports hyperparameters no tree can be fitted with.
func (p TreeParams) Validate() error {
	switch {
	case p.MaxLength < 0:
		return fmt.Errorf("max_length must be non-negative, got %d", p.MaxLength)
	case p.MinNumSamples < 0:
		return fmt.Errorf("min_num_samples must be non-negative, got %d", p.MinNumSamples)
	case p.Regularization < 0:
		return fmt.Errorf("regularization must be non-negative, got %v", p.Regularization)
	case p.DeltaT < 0:
		return fmt.Errorf("delta_t must be non-negative, got %v", p.DeltaT)
	case p.GridFactor <= 0:
		return fmt.Errorf("grid_factor must be positive, got %v", p.GridFactor)
	}
	return nil
}
