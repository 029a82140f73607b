//go:build !nochecks

package contract

const checksEnabled = true
