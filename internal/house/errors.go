package house

import "errors"

var (
	ErrNilHouse           = errors.New("house is nil")
	ErrRoomLimit          = errors.New("room limit reached")
	ErrConnectionLimit    = errors.New("connection limit reached")
	ErrInvalidConnection  = errors.New("invalid connection")
	ErrNoStartingRoom     = errors.New("house has no starting room")
	ErrRoomFull           = errors.New("room is full")
	ErrGhostPresent       = errors.New("house already has a ghost")
	ErrNoRooms            = errors.New("house has no rooms")
	ErrInvalidLayout      = errors.New("invalid layout")
	ErrDuplicateRoom      = errors.New("duplicate room name")
	ErrDisconnectedLayout = errors.New("room graph is not connected")
)
