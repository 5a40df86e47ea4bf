package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-crossover/internal/broker Broker
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-crossover/internal/marketdata Provider
//go:generate mockgen -destination=./mock_ledger.go -package=mocks github.com/rxtech-lab/argo-crossover/internal/ledger Ledger
