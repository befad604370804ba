package app

import (
	"fmt"

	ordersHTTP "github.com/grailpoint/storefront/internal/orders/http"
	ordersRepository "github.com/grailpoint/storefront/internal/orders/repository"
	ordersUseCase "github.com/grailpoint/storefront/internal/orders/usecase"
	paymentsUseCase "github.com/grailpoint/storefront/internal/payments/usecase"
)

// OrderRepository returns the order ledger repository instance.
func (c *Container) OrderRepository() (paymentsUseCase.OrderRepository, error) {
	c.orderRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["orderRepo"] = fmt.Errorf("failed to get database for order repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.orderRepo = ordersRepository.NewMySQLOrderRepository(db)
		case "postgres":
			c.orderRepo = ordersRepository.NewPostgreSQLOrderRepository(db)
		default:
			c.initErrors["orderRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderRepo, nil
}

// OrderEventRepository returns the order event log repository instance.
func (c *Container) OrderEventRepository() (paymentsUseCase.OrderEventRepository, error) {
	c.orderEventRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["orderEventRepo"] = fmt.Errorf("failed to get database for order event repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.orderEventRepo = ordersRepository.NewMySQLOrderEventRepository(db)
		case "postgres":
			c.orderEventRepo = ordersRepository.NewPostgreSQLOrderEventRepository(db)
		default:
			c.initErrors["orderEventRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["orderEventRepo"]; exists {
		return nil, storedErr
	}
	return c.orderEventRepo, nil
}

// OrderUseCase returns the order read use case instance.
func (c *Container) OrderUseCase() (ordersUseCase.OrderUseCase, error) {
	c.orderUseCaseInit.Do(func() {
		orderRepo, err := c.OrderRepository()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get order repository for order use case: %w", err)
			return
		}

		orderEventRepo, err := c.OrderEventRepository()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get order event repository for order use case: %w", err)
			return
		}

		c.orderUseCase = ordersUseCase.NewOrderUseCase(orderRepo, orderEventRepo)
	})
	if storedErr, exists := c.initErrors["orderUseCase"]; exists {
		return nil, storedErr
	}
	return c.orderUseCase, nil
}

// OrderHandler returns the order status HTTP handler instance.
func (c *Container) OrderHandler() (*ordersHTTP.OrderHandler, error) {
	c.orderHandlerInit.Do(func() {
		orderUseCase, err := c.OrderUseCase()
		if err != nil {
			c.initErrors["orderHandler"] = fmt.Errorf("failed to get order use case for order handler: %w", err)
			return
		}

		c.orderHandler = ordersHTTP.NewOrderHandler(orderUseCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["orderHandler"]; exists {
		return nil, storedErr
	}
	return c.orderHandler, nil
}
