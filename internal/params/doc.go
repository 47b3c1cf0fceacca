// Package params declares the legal brewing parameter space and sanitizes
// candidate parameter sets against it. Only this package can mark a set as
// validated; everything downstream relies on that invariant.
package params
