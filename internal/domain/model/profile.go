package model

import "time"

// 配送先住所
type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// プロフィール（profilesテーブル。IDはusers.idと同じ）
type Profile struct {
	ID        string           `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName *string          `gorm:"type:varchar(255)" json:"first_name"`
	LastName  *string          `gorm:"type:varchar(255)" json:"last_name"`
	AvatarURL *string          `gorm:"type:text" json:"avatar_url"`
	Phone     *string          `gorm:"type:varchar(30)" json:"phone"`
	Address   *ShippingAddress `gorm:"type:jsonb;serializer:json" json:"address"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// プロフィールの部分更新。nilの項目は変更しない。
type ProfilePatch struct {
	FirstName *string          `json:"first_name,omitempty"`
	LastName  *string          `json:"last_name,omitempty"`
	AvatarURL *string          `json:"avatar_url,omitempty"`
	Phone     *string          `json:"phone,omitempty"`
	Address   *ShippingAddress `json:"address,omitempty"`
}

// 更新対象が1つもないか
func (p ProfilePatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.AvatarURL == nil && p.Phone == nil && p.Address == nil
}
