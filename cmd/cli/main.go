package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/bookstore/internal/apperr"
	"github.com/alextreichler/bookstore/internal/auth"
	"github.com/alextreichler/bookstore/internal/models"
	"github.com/alextreichler/bookstore/internal/store"
)

const usage = `usage: cli <command> [flags]

commands:
  add-user    create an operator account
  list-users  print every operator account
  seed-demo   load demo operators, books and customers`

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New(usage)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./bookstore.db"
	}

	switch args[0] {
	case "add-user":
		fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "login email")
		password := fs.String("password", "", "initial password")
		role := fs.String("role", models.RoleSeller, "admin or seller")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *name == "" || *email == "" || *password == "" {
			fs.PrintDefaults()
			return errors.New("name, email and password are required")
		}
		if *role != models.RoleAdmin && *role != models.RoleSeller {
			return fmt.Errorf("unknown role %q", *role)
		}
		return withStore(ctx, dbPath, func(st *store.Store) error {
			u, err := addUser(ctx, st, *name, *email, *password, *role)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "User '%s' <%s> created with role %s.\n", u.Name, u.Email, u.Role)
			return nil
		})

	case "list-users":
		return withStore(ctx, dbPath, func(st *store.Store) error {
			return listUsers(ctx, st, out)
		})

	case "seed-demo":
		return withStore(ctx, dbPath, func(st *store.Store) error {
			return seedDemo(ctx, st, out)
		})

	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

// withStore opens the database, applies pending migrations and runs fn.
func withStore(ctx context.Context, dbPath string, fn func(*store.Store) error) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return fn(st)
}

func addUser(ctx context.Context, st *store.Store, name, email, password, role string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role, Active: true}
	if err := st.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func listUsers(ctx context.Context, st *store.Store, out io.Writer) error {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tROLE\tACTIVE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", u.Email, u.Name, u.Role, u.Active, u.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

var demoUsers = []struct{ name, email, password, role string }{
	{"Administración", "admin@libreria.test", "admin-demo", models.RoleAdmin},
	{"Caja", "caja@libreria.test", "caja-demo", models.RoleSeller},
}

var demoBooks = []models.Book{
	{Title: "Cien años de soledad", Author: "Gabriel García Márquez", Genre: "Novela", ISBN: "9780307474728", Year: 1967, Stock: 12, Price: decimal.RequireFromString("18.50")},
	{Title: "Ficciones", Author: "Jorge Luis Borges", Genre: "Cuento", ISBN: "9788499089515", Year: 1944, Stock: 4, Price: decimal.RequireFromString("12.90")},
	{Title: "Pedro Páramo", Author: "Juan Rulfo", Genre: "Novela", ISBN: "9788437604183", Year: 1955, Stock: 9, Price: decimal.RequireFromString("10.00")},
	{Title: "Rayuela", Author: "Julio Cortázar", Genre: "Novela", ISBN: "9788437604572", Year: 1963, Stock: 2, Price: decimal.RequireFromString("21.00")},
	{Title: "Veinte poemas de amor", Author: "Pablo Neruda", Genre: "Poesía", ISBN: "9788497592208", Year: 1924, Stock: 15, Price: decimal.RequireFromString("8.75")},
}

var demoCustomers = []models.Customer{
	{Name: "Lucía Fernández", Email: "lucia@clientes.test", Phone: "555-0101", Address: models.Address{Street: "Calle Mayor 12", City: "Madrid", PostalCode: "28013"}, Active: true},
	{Name: "Mateo Rojas", Email: "mateo@clientes.test", Phone: "555-0102", Address: models.Address{Street: "Av. Arequipa 300", City: "Lima", PostalCode: "15046"}, Active: true},
	{Name: "Valentina Ruiz", Email: "valentina@clientes.test", Address: models.Address{City: "Bogotá"}, Active: false},
}

// seedDemo loads demo data. Operators that already exist are skipped and the
// catalog is only seeded into an empty database, so running it twice is safe.
func seedDemo(ctx context.Context, st *store.Store, out io.Writer) error {
	for _, d := range demoUsers {
		_, err := addUser(ctx, st, d.name, d.email, d.password, d.role)
		if apperr.Is(err, apperr.Conflict) {
			fmt.Fprintf(out, "User %s already exists, skipped.\n", d.email)
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "User %s created (password: %s).\n", d.email, d.password)
	}

	books, err := st.ListBooks(ctx, store.BookFilter{})
	if err != nil {
		return err
	}
	if len(books) > 0 {
		fmt.Fprintln(out, "Catalog not empty, skipping demo books and customers.")
		return nil
	}
	for _, b := range demoBooks {
		if err := st.CreateBook(ctx, &b); err != nil {
			return err
		}
	}
	for _, c := range demoCustomers {
		if err := st.CreateCustomer(ctx, &c); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Loaded %d books and %d customers.\n", len(demoBooks), len(demoCustomers))
	return nil
}
