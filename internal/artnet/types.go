package artnet

// Universe wraps the 512 byte array for convenience.
type Universe [512]byte

// UniverseStateMap holds the state of all used universes.
type UniverseStateMap map[uint16]Universe
