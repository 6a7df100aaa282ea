// users.go implements the user lookups backing the credential gate.
package datastore

import (
	"context"
	"time"
)

// GetUserByUsername returns the user with the exact username, active or not.
// The credential gate decides how to present inactive accounts; the store
// only distinguishes ErrUserNotFound from storage failures.
func (ds *DataStore) GetUserByUsername(ctx context.Context, username string) (user *User, err error) {
	defer func(start time.Time) { ds.observe("get_user", start, err) }(time.Now())

	if username == "" {
		err = validationError("username is required", "username", username)
		return nil, err
	}

	var found User
	err = ds.DB.WithContext(ctx).Where("username = ?", username).First(&found).Error
	switch {
	case err == nil:
		return &found, nil
	case gormNotFound(err):
		err = notFoundError(ErrUserNotFound, "user", username)
		return nil, err
	default:
		err = storageError(err, "get_user")
		return nil, err
	}
}

// TouchLastLogin records a successful authentication timestamp.
func (ds *DataStore) TouchLastLogin(ctx context.Context, userID uint, at time.Time) (err error) {
	defer func(start time.Time) { ds.observe("touch_last_login", start, err) }(time.Now())

	result := ds.DB.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("last_login_at", at)
	if result.Error != nil {
		err = storageError(result.Error, "touch_last_login", "user_id", userID)
		return err
	}
	if result.RowsAffected == 0 {
		err = notFoundError(ErrUserNotFound, "user", "")
		return err
	}
	return nil
}
