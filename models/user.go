package models

import "time"

// User mirrors the identity records written by the auth collaborator. The
// vault core reads them for target validation, quota accounting, and family
// group resolution; it never creates them.
type User struct {
	UID           string    `bson:"_id" json:"uid"`
	Email         string    `bson:"email" json:"email"`
	Name          string    `bson:"name" json:"name"`
	FamilyGroupID string    `bson:"family_group_id,omitempty" json:"family_group_id,omitempty"`
	UsedStorage   int64     `bson:"used_storage" json:"used_storage"`
	MaxStorage    int64     `bson:"max_storage" json:"max_storage"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at" json:"updated_at"`
}
