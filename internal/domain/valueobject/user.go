package valueobject

// Identity 已认证的调用者（不可变）
type Identity struct {
	userID string
	email  string
}

// NewIdentity 创建身份值对象
func NewIdentity(userID, email string) Identity {
	return Identity{userID: userID, email: email}
}

// UserID 返回用户ID
func (i Identity) UserID() string {
	return i.userID
}

// Email 返回邮箱（可能为空）
func (i Identity) Email() string {
	return i.email
}

// IsAnonymous 未认证
func (i Identity) IsAnonymous() bool {
	return i.userID == ""
}

// Equals 值对象相等性比较
func (i Identity) Equals(other Identity) bool {
	return i.userID == other.userID && i.email == other.email
}
