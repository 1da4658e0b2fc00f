package sync

// ServiceConfig конфигурация сервиса синхронизации
type ServiceConfig struct {
	// MaxBatch максимальное число записей в одном upsync-запросе
	MaxBatch int `json:"max_batch"`
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{MaxBatch: 500}
}
