// Package federation holds the Controller's static configuration, loaded
// the same way the teacher's FLPlan was: a YAML file parsed with
// gopkg.in/yaml.v3, guarded against path traversal.
package federation

// ControllerParams is the Controller's construction-time configuration, the
// Go analogue of the original ControllerParams protobuf message.
type ControllerParams struct {
	ModelHyperparams   ModelHyperparams   `yaml:"model_hyperparams"`
	GlobalModelSpecs   GlobalModelSpecs   `yaml:"global_model_specs"`
	CommunicationSpecs CommunicationSpecs `yaml:"communication_specs"`
	FHEScheme          FHEScheme          `yaml:"fhe_scheme"`

	// Ambient additions not named by spec.md's enumerated ControllerParams
	// but required to construct the rest of SPEC_FULL.md's components.
	SchedulingPoolSize int        `yaml:"scheduling_pool_size"`
	PipelineBufferSize int        `yaml:"pipeline_buffer_size"`
	Auth               AuthConfig `yaml:"auth"`
}

// ModelHyperparams are shared by every training round.
type ModelHyperparams struct {
	BatchSize         uint32  `yaml:"batch_size"`
	Epochs            uint32  `yaml:"epochs"`
	Optimizer         string  `yaml:"optimizer"`
	PercentValidation float32 `yaml:"percent_validation"`
}

// AggregationRule selects the AggregationFunction the Controller installs.
type AggregationRule string

const (
	AggregationFedAvg AggregationRule = "FED_AVG"
	AggregationPWA     AggregationRule = "PWA"
)

// GlobalModelSpecs selects the aggregation rule.
type GlobalModelSpecs struct {
	AggregationRule AggregationRule `yaml:"aggregation_rule"`
}

// FHEScheme is an opaque handle consumed only by the PWA aggregator; its
// internals (the HE codec) are out of SPEC_FULL.md's scope.
type FHEScheme struct {
	Name   string `yaml:"name"`
	Params string `yaml:"params"`
}

// Protocol selects the Scheduler the Controller installs.
type Protocol string

const (
	ProtocolSynchronous     Protocol = "SYNCHRONOUS"
	ProtocolSemiSynchronous Protocol = "SEMI_SYNCHRONOUS"
	ProtocolAsynchronous    Protocol = "ASYNCHRONOUS"
)

// CommunicationSpecs selects the scheduling protocol and its tuning knobs.
type CommunicationSpecs struct {
	Protocol      Protocol      `yaml:"protocol"`
	ProtocolSpecs ProtocolSpecs `yaml:"protocol_specs"`
}

// ProtocolSpecs holds the semi-synchronous re-templating knobs from
// spec.md §4.4.
type ProtocolSpecs struct {
	SemiSyncLambda               float32 `yaml:"semi_sync_lambda"`
	SemiSyncRecomputeNumUpdates  bool    `yaml:"semi_sync_recompute_num_updates"`
}

// AuthConfig configures how the Learner Registry mints auth tokens (see
// pkg/idgen). TokenSecret signs the token; if empty, a random secret is
// generated at process start (tokens then only verify within this process
// lifetime, which matches the no-persistence-across-restarts non-goal).
type AuthConfig struct {
	TokenSecret string `yaml:"token_secret"`
}
