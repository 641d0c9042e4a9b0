// Package infra holds the adapters between the decision core and the
// outside world: the evcc MQTT client, forecast and tariff sources, metrics
// exporters, Sentry and the zerolog backend. Core packages never import
// infra; infra registers its implementations through the core factories.
package infra
