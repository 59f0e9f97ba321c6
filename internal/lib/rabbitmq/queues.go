package rabbitmq

// ExchangeSubscriptions — direct-exchange для событий жизненного цикла подписки.
const ExchangeSubscriptions = "subscriptions"

// Ключи маршрутизации событий подписки.
const (
	RoutingKeyActivated = "subscription.activated"
	RoutingKeyCancelled = "subscription.cancelled"
)

// QueueConfig описывает очередь и ключ, по которому она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetSubscriptionQueues возвращает очереди, из которых читает sender.
func GetSubscriptionQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "subscription.activated", RoutingKey: RoutingKeyActivated},
		{QueueName: "subscription.cancelled", RoutingKey: RoutingKeyCancelled},
	}
}
