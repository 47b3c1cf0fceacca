// Package blend personalizes candidate recipes: profile hints nudge fields
// within a bounded window, and a ridge-regression predictor fitted on rated
// history re-ranks inside that same window when enough samples exist.
package blend
