package classroom

// SetCodeGenFunc swaps the join code generator and returns a restore func.
func SetCodeGenFunc(f func() (string, error)) (restore func()) {
	orig := codeGenFunc
	codeGenFunc = f
	return func() { codeGenFunc = orig }
}
