//go:build !js_eval

package navstack

// NewJSEvaluator returns nil without the js_eval build tag: the goja
// runtime stays out of default builds, and Inspector falls back to its
// configured default engine when handed a nil evaluator.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func jsEvaluatorAvailable() bool {
	return false
}
