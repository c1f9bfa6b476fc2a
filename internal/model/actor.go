package model

// Actor 经认证的调用方，由认证中间件构造
type Actor struct {
	UserID           string
	Name             string
	Role             Role
	TeachingOfficeID string
	Caps             CapabilitySet
}

// NewActor 按角色计算能力集合
func NewActor(userID, name string, role Role, teachingOfficeID string) Actor {
	return Actor{
		UserID:           userID,
		Name:             name,
		Role:             role,
		TeachingOfficeID: teachingOfficeID,
		Caps:             role.Capabilities(),
	}
}

// Can 是否具备某项能力
func (a Actor) Can(c Capability) bool { return a.Caps.Has(c) }

// OwnsOffice 是否为该教研室本身
func (a Actor) OwnsOffice(teachingOfficeID string) bool {
	return a.Role == RoleTeachingOffice && a.TeachingOfficeID != "" && a.TeachingOfficeID == teachingOfficeID
}

// RoleSystem 后台任务使用的系统身份
const RoleSystem Role = "system"

// SystemActor 后台任务的操作人，具备全部能力
func SystemActor() Actor {
	return Actor{UserID: "system", Name: "系统", Role: RoleSystem, Caps: CapabilitySet(^Capability(0))}
}
