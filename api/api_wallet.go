package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/kasmail/kasmail-server/api/interceptors"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
	"github.com/kasmail/kasmail-server/util"
)

// TransferBridge hands fee transfer requests to the sender's browser wallet
type TransferBridge interface {
	Pending(ctx context.Context, address string) ([]*types.TransferRequest, error)
	Resolve(ctx context.Context, address, id string, result types.TransferResult) error
}

type WalletApi struct {
	bridge   TransferBridge
	validate *validator.Validate
}

func NewWalletApi(bridge TransferBridge) *WalletApi {
	if bridge == nil {
		panic("transfer bridge cannot be nil")
	}
	return &WalletApi{bridge: bridge, validate: validator.New()}
}

// Pending transfers
// @Summary List fee transfers waiting for the caller's wallet signature
// @Security Bearer
// @Tags Wallet
// @Produce json
// @Success 200 {object} types.OutputPendingTransfers
// @Router /api/v1/wallet/transfers [get]
func (wa *WalletApi) GetPendingTransfers(c *gin.Context) {
	subjectAddress, exists := c.Get(interceptors.SubjectAddressKey)
	if !exists {
		ApiErrorf(c, http.StatusInternalServerError, "jwt invalid")
		return
	}
	transfers, err := wa.bridge.Pending(c.Request.Context(), subjectAddress.(string))
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to list pending transfers", "address", subjectAddress, "err", err)
		ApiErrorf(c, http.StatusInternalServerError, "failed to list pending transfers")
		return
	}
	if transfers == nil {
		transfers = []*types.TransferRequest{}
	}
	c.JSON(http.StatusOK, types.OutputPendingTransfers{Transfers: transfers})
}

// Resolve transfer
// @Summary Report the wallet's answer to a pending transfer (transaction id, cancel or error)
// @Security Bearer
// @Tags Wallet
// @Accept json
// @Produce json
// @Param id path string true "transfer request id"
// @Param resolution body types.InputTransferResolution true "wallet answer"
// @Success 200 {object} map[string]string
// @Failure 400 {object} api.ApiError "bad request"
// @Failure 403 {object} api.ApiError "transfer belongs to another wallet"
// @Failure 404 {object} api.ApiError "unknown or already answered transfer"
// @Router /api/v1/wallet/transfers/{id} [post]
func (wa *WalletApi) ResolveTransfer(c *gin.Context) {
	subjectAddress, exists := c.Get(interceptors.SubjectAddressKey)
	if !exists {
		ApiErrorf(c, http.StatusInternalServerError, "jwt invalid")
		return
	}
	id := c.Param("id")

	var input types.InputTransferResolution
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid format")
		return
	}
	if err := wa.validate.Struct(input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, util.ValidationErrorToMessage(err))
		return
	}
	if input.TxID == "" && !input.Cancelled && input.Error == "" {
		ApiErrorf(c, http.StatusBadRequest, "one of txId, cancelled or error is required")
		return
	}

	result := types.TransferResult{TxID: input.TxID, Cancelled: input.Cancelled, Error: input.Error}
	err := wa.bridge.Resolve(c.Request.Context(), subjectAddress.(string), id, result)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNotFound):
			ApiErrorf(c, http.StatusNotFound, "transfer not found or already answered")
		case errors.Is(err, types.ErrNotAuthorized):
			ApiErrorf(c, http.StatusForbidden, "transfer belongs to another wallet")
		case errors.Is(err, types.ErrBadRequest):
			ApiErrorf(c, http.StatusBadRequest, err.Error())
		default:
			level.Error(global.Logger).Log("msg", "failed to resolve transfer", "id", id, "address", subjectAddress, "err", err)
			ApiErrorf(c, http.StatusInternalServerError, "failed to resolve transfer")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "resolved"})
}
