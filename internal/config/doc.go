// Package config загружает конфигурацию процессов через viper:
// config.yaml (необязательный), переменные окружения TENDERFLOW_*
// и значения по умолчанию.
package config
