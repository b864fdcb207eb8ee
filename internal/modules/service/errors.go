package service

import "errors"

var (
	ErrPropertyNotFound  = errors.New("property not found")
	ErrRoomNotFound      = errors.New("room not found")
	ErrTourNotFound      = errors.New("tour not found")
	ErrNoCompletedRooms  = errors.New("no rooms with processed panoramas")
	ErrUnknownVoice      = errors.New("unknown voice preset")
	ErrNarrationDisabled = errors.New("narration is not enabled")
)
