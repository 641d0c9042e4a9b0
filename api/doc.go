// Package api exposes the decision snapshot and the driver commands over
// HTTP. Every query reads one published snapshot, so a response never
// mixes two cycles.
package api
