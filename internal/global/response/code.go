package response

// 错误码前三位为 HTTP 状态码，后两位区分同类错误
var (
	ErrInvalidRequest    = newError(40000, "请求参数错误")
	ErrInvalidPassword   = newError(40001, "密码错误")
	ErrInvalidAgeRange   = newError(40010, "年龄范围不合法")
	ErrInvalidTimeFormat = newError(40011, "时间格式错误")
	ErrHostCannotLeave   = newError(40012, "发起人不能退出活动，请关闭活动")
	ErrNotPending        = newError(40013, "该申请不是待审核状态")
	ErrAuthModeDisabled  = newError(40014, "当前登录模式不支持")

	ErrTokenInvalid = newError(40100, "登录状态无效")
	ErrUnauthorized = newError(40101, "未登录")

	ErrForbidden       = newError(40300, "无权限")
	ErrPrivateActivity = newError(40310, "私密活动仅对成员可见")
	ErrWomenOnly       = newError(40311, "该活动仅限女性及非二元性别用户参加")
	ErrAgeRestricted   = newError(40312, "不满足活动年龄要求")
	ErrNotHost         = newError(40313, "只有发起人可以执行该操作")
	ErrNotMember       = newError(40314, "不是会话成员")

	ErrNotFound            = newError(40400, "资源不存在")
	ErrActivityNotFound    = newError(40410, "活动不存在")
	ErrParticipantNotFound = newError(40411, "参与记录不存在")
	ErrUserNotFound        = newError(40412, "用户不存在")

	ErrAlreadyExists    = newError(40900, "资源已存在")
	ErrAlreadyRequested = newError(40910, "已申请或已加入该活动")
	ErrActivityInactive = newError(40911, "活动已结束或已关闭")

	ErrTooManyRequests = newError(42900, "请求过于频繁")

	ErrServerInternal = newError(50000, "服务器内部错误")
	ErrDatabase       = newError(50001, "数据库错误")
	ErrStorage        = newError(50002, "文件存储错误")
	ErrRealtime       = newError(50003, "实时推送不可用")
)
