// Package expr implements the boolean expressions that drive conditional
// visibility and enablement of parameters, and the extraction of the keys an
// expression depends on.
package expr
