// +build !amd64,!arm64

package madt

var defaultStrategy Strategy = &gicBringUp{}
