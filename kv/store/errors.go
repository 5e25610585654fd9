package store

import "errors"

var (
	// ErrMapClosed is returned when backend operations run before Open() or
	// after Close().
	ErrMapClosed = errors.New("backend map is closed; call Open() before performing operations")

	// ErrBoltBucketCreateFailed indicates creating the BoltDB bucket failed.
	ErrBoltBucketCreateFailed = errors.New("bolt bucket create failed")
	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrMapOpenFailed indicates the backend could not be opened.
	ErrMapOpenFailed = errors.New("backend open failed")
	// ErrMapReadFailed indicates a read from the backend failed.
	ErrMapReadFailed = errors.New("backend read failed")
	// ErrMapWriteFailed indicates a write or batch write to the backend failed.
	ErrMapWriteFailed = errors.New("backend write failed")
	// ErrMapDeleteFailed indicates a delete or batch delete failed.
	ErrMapDeleteFailed = errors.New("backend delete failed")
)
