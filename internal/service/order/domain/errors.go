package domain

import "errors"

// 领域错误按"错误种类"定义为哨兵值，调用方通过 errors.Is 分类处理。
// 具体的出错细节由各操作用 fmt.Errorf("%w: ...") 包装后附加。
var (
	// ErrInvalidArgument 表示构造函数或操作收到了非法入参（空ID、非正数量、负金额等）。
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCurrencyMismatch 表示两个不同币种之间发生了金额运算或价格更新。
	// 这是编程错误而非可恢复的业务错误，系统中不存在任何隐式汇率换算。
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInvalidState 表示操作在当前状态下不被允许（如非 Pending 状态下修改明细）。
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidStateTransition 表示目标状态不在当前业务上下文的合法转移表中。
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidOperation 表示在错误的业务上下文中调用了上下文专属操作（如非餐厅单指派服务员）。
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrItemNotFound 表示订单中不存在指定商品的行项目。
	ErrItemNotFound = errors.New("order item not found")

	// ErrPaymentNotFound 表示订单中不存在指定的支付记录。
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrRefundExceedsPayment 表示累计退款金额将超过原支付金额。
	ErrRefundExceedsPayment = errors.New("refund exceeds payment amount")

	// ErrOrderNotFound 由持久化边界返回，表示指定ID的订单不存在。
	ErrOrderNotFound = errors.New("order not found")

	// ErrConcurrencyConflict 由持久化边界返回，表示基于版本号的乐观锁校验失败。
	// 本核心不做任何内部重试，是否重试由外部驱动方决定。
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)
