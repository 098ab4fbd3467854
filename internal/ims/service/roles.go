package service

// 门户侧身份提供方传入的角色
const (
	RoleUser             = "user"
	RoleAdvisor          = "advisor"
	RoleManager          = "manager"
	RoleAdmin            = "admin"
	RoleInventoryManager = "inventory_manager"
	RoleFinanceManager   = "finance_manager"
	RoleStaffManager     = "staff_manager"
	RoleHRManager        = "hr_manager"
)

// Actor 发起操作的用户，由HTTP层从认证上下文提取后传入
type Actor struct {
	UserID    string
	Name      string
	Role      string
	IPAddress string
	UserAgent string
}

// CanSubmitPO 提交/收货：inventory_manager与manager等权，admin放行一切
func CanSubmitPO(role string) bool {
	return role == RoleInventoryManager || role == RoleManager || role == RoleAdmin
}

// CanApprovePO 审批/驳回：manager与finance_manager等权
func CanApprovePO(role string) bool {
	return role == RoleManager || role == RoleFinanceManager || role == RoleAdmin
}

// CanDeliverPO 收货权限与提交一致
func CanDeliverPO(role string) bool {
	return CanSubmitPO(role)
}

// IsOperator 后台运营角色（草稿编辑/删除、零件维护）
func IsOperator(role string) bool {
	switch role {
	case RoleManager, RoleAdmin, RoleInventoryManager, RoleFinanceManager, RoleStaffManager, RoleHRManager:
		return true
	}
	return false
}
