package database

import "errors"

// ErrNotConnected is returned by writers when ConnectDB was never called.
// Control operations that depend on a write (match creation) fail closed;
// best-effort writers (the archive) just log it.
var ErrNotConnected = errors.New("database not connected")

func ready() error {
	if DB == nil {
		return ErrNotConnected
	}
	return nil
}
