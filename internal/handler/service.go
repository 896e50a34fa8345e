package handler

import (
	"context"

	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/service"
)

type MemberService interface {
	Register(ctx context.Context, req model.RegisterMemberRequest) (*model.Member, error)
	Login(email, password string) (*model.Member, error)
	FindByID(id int) *model.Member
}

type CatalogService interface {
	Register(ctx context.Context, req model.CreateBookRequest) (*model.Book, error)
	FindByISBN(isbn string) *model.Book
}

type CopyService interface {
	Register(ctx context.Context, req model.CreateCopyRequest) (*model.Copy, error)
	FindByID(id int) *model.Copy
	AvailableTotal() int
	Stock() []model.BookStock
}

type LendingService interface {
	Issue(ctx context.Context, memberID, copyID int) (*model.Loan, error)
	Return(ctx context.Context, loanID int) (model.ReturnResult, error)
	FindByID(id int) *model.Loan
	List() []model.Loan
}

var (
	_ MemberService  = (*service.MemberService)(nil)
	_ CatalogService = (*service.CatalogService)(nil)
	_ CopyService    = (*service.CopyService)(nil)
	_ LendingService = (*service.LendingService)(nil)
)
