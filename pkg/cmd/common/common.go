package common

// BinaryName the binary name to use in help docs
var BinaryName = "jx-ci-setup"
