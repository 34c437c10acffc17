package embedding

// ONNX defaults for sentence-transformer style exports.
const (
	DefaultONNXDimensions = 384
	DefaultMaxTokens      = 256
	DefaultONNXOutput     = "sentence_embedding"
)

// ONNXConfig describes one exported checkpoint.
type ONNXConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
	// OutputName is the graph output holding the pooled [1, Dimensions] embedding.
	OutputName string
}

func (c ONNXConfig) withDefaults() ONNXConfig {
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultONNXDimensions
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.OutputName == "" {
		c.OutputName = DefaultONNXOutput
	}
	return c
}
