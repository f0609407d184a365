package madt

var defaultStrategy Strategy = &gicBringUp{}
