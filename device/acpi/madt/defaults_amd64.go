package madt

var defaultStrategy Strategy = &apicBringUp{}
