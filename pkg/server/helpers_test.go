package server

import "github.com/itsneelabh/agrimarket/pkg/logger"

func nopLogger() logger.Logger { return logger.NewNop() }
