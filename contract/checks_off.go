//go:build nochecks

package contract

const checksEnabled = false
