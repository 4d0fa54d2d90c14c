package domain

// OrderStatus 定义了订单的生命周期状态。
// 状态枚举在所有业务上下文间共享，但合法转移与终态由上下文决定。
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"   // 已创建，明细可编辑
	StatusConfirmed OrderStatus = "CONFIRMED" // 已确认，明细冻结
	StatusCancelled OrderStatus = "CANCELLED" // 已取消（任意上下文的非终态均可达）

	// 餐厅上下文专属状态
	StatusKitchenQueue OrderStatus = "KITCHEN_QUEUE" // 已进入后厨队列
	StatusCooking      OrderStatus = "COOKING"       // 烹饪中
	StatusReady        OrderStatus = "READY"         // 出餐就绪
	StatusServed       OrderStatus = "SERVED"        // 已上桌（终态）

	// 精品店上下文专属状态
	StatusScanned   OrderStatus = "SCANNED"   // 商品已扫码
	StatusPaid      OrderStatus = "PAID"      // 已收款
	StatusReceipted OrderStatus = "RECEIPTED" // 已出小票（终态）

	// 电商/批发上下文共享状态
	StatusProcessing OrderStatus = "PROCESSING" // 仓库处理中
	StatusShipped    OrderStatus = "SHIPPED"    // 已发货
	StatusDelivered  OrderStatus = "DELIVERED"  // 已送达（终态）
)

// happyPaths 描述每个业务上下文的线性履约路径（不含取消分支）。
// Cancelled 分支在 init 中统一追加到所有非终态上，避免在每个条目里重复。
var happyPaths = map[BusinessContext]map[OrderStatus][]OrderStatus{
	ContextRestaurant: {
		StatusPending:      {StatusConfirmed},
		StatusConfirmed:    {StatusKitchenQueue},
		StatusKitchenQueue: {StatusCooking},
		StatusCooking:      {StatusReady},
		StatusReady:        {StatusServed},
		StatusServed:       {},
	},
	ContextBoutique: {
		StatusPending:   {StatusConfirmed},
		StatusConfirmed: {StatusScanned},
		StatusScanned:   {StatusPaid},
		StatusPaid:      {StatusReceipted},
		StatusReceipted: {},
	},
	ContextECommerce: {
		StatusPending:    {StatusConfirmed},
		StatusConfirmed:  {StatusProcessing},
		StatusProcessing: {StatusShipped},
		StatusShipped:    {StatusDelivered},
		StatusDelivered:  {},
	},
	ContextWholesale: {
		StatusPending:    {StatusConfirmed},
		StatusConfirmed:  {StatusProcessing},
		StatusProcessing: {StatusShipped},
		StatusShipped:    {StatusDelivered},
		StatusDelivered:  {},
	},
}

// terminalStatuses 标记每个上下文自己的履约终态，Cancelled 在所有上下文均为终态。
var terminalStatuses = map[BusinessContext]map[OrderStatus]bool{
	ContextRestaurant: {StatusServed: true, StatusCancelled: true},
	ContextBoutique:   {StatusReceipted: true, StatusCancelled: true},
	ContextECommerce:  {StatusDelivered: true, StatusCancelled: true},
	ContextWholesale:  {StatusDelivered: true, StatusCancelled: true},
}

// contextTransitions 是完整的 {上下文 -> {当前状态 -> 合法目标集合}} 查表结构，
// 在包初始化时构建一次，之后只读。
var contextTransitions = map[BusinessContext]map[OrderStatus][]OrderStatus{}

func init() {
	for bc, path := range happyPaths {
		table := make(map[OrderStatus][]OrderStatus, len(path)+1)
		for from, targets := range path {
			next := append([]OrderStatus{}, targets...)
			// 取消与上下文无关：所有非终态都可以转入 Cancelled。
			if !terminalStatuses[bc][from] {
				next = append(next, StatusCancelled)
			}
			table[from] = next
		}
		table[StatusCancelled] = []OrderStatus{}
		contextTransitions[bc] = table
	}
}

// ValidTransitionsFor 返回 (上下文, 状态) 对应的合法目标状态集合（副本）。
// 未知的上下文或状态返回空集。
func ValidTransitionsFor(bc BusinessContext, from OrderStatus) []OrderStatus {
	table, ok := contextTransitions[bc]
	if !ok {
		return nil
	}
	return append([]OrderStatus{}, table[from]...)
}

// CanTransition 判断在给定上下文中 from -> to 是否为合法转移。
func CanTransition(bc BusinessContext, from, to OrderStatus) bool {
	table, ok := contextTransitions[bc]
	if !ok {
		return false
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus 判断状态在给定上下文中是否为终态。
func IsTerminalStatus(bc BusinessContext, status OrderStatus) bool {
	return terminalStatuses[bc][status]
}

// statusAttributes 是固定的 状态 -> 展示属性 查表，供运营/UI侧构建操作入口。
// RequiresAction 表示该状态需要有人介入推进。
var statusAttributes = map[OrderStatus]struct {
	Color          string
	RequiresAction bool
}{
	StatusPending:      {"gray", true},
	StatusConfirmed:    {"blue", false},
	StatusKitchenQueue: {"orange", true},
	StatusCooking:      {"orange", true},
	StatusReady:        {"green", true},
	StatusServed:       {"green", false},
	StatusScanned:      {"blue", true},
	StatusPaid:         {"green", true},
	StatusReceipted:    {"green", false},
	StatusProcessing:   {"blue", true},
	StatusShipped:      {"purple", false},
	StatusDelivered:    {"green", false},
	StatusCancelled:    {"red", false},
}

// DisplayContext 是订单状态的只读展示投影。
type DisplayContext struct {
	OrderNumber    string          `json:"orderNumber"`
	Status         OrderStatus     `json:"status"`
	Context        BusinessContext `json:"context"`
	StatusColor    string          `json:"statusColor"`
	RequiresAction bool            `json:"requiresAction"`
}
