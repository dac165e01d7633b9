package config

// DefaultSocket is the default control pipe.
const DefaultSocket = `\\.\pipe\ifset`
