package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"realty_chat/internal/domain"
	"realty_chat/internal/repository"
)

var (
	listingInput    domain.Listing
	listingImageURL string
	listingInactive bool
)

var listingCmd = &cobra.Command{
	Use:   "listing",
	Short: "Manage property listings",
}

var listingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a property listing to the catalog",
	Example: `  chatctl listing add --title "Deniz manzaralı 3+1" --price "4.250.000 TL" \
    --location "Kuşadası, Aydın" --rooms 3+1 --bathrooms 2 --area 145`,
	Args: cobra.NoArgs,
	RunE: runListingAdd,
}

func init() {
	f := listingAddCmd.Flags()
	f.StringVar(&listingInput.Title, "title", "", "listing title")
	f.StringVar(&listingInput.Description, "description", "", "free text description")
	f.StringVar(&listingInput.Price, "price", "", "display price, e.g. \"4.250.000 TL\"")
	f.StringVar(&listingInput.Location, "location", "", "district and city")
	f.StringVar(&listingInput.Heating, "heating", "", "heating type")
	f.StringVar(&listingInput.PropertyType, "type", "", "property type (daire, villa, ...)")
	f.StringVar(&listingInput.Category, "category", "", "sale or rent category")
	f.StringVar(&listingInput.Kitchen, "kitchen", "", "kitchen type")
	f.StringVar(&listingInput.Rooms, "rooms", "", "room layout, e.g. 3+1")
	f.IntVar(&listingInput.Bathrooms, "bathrooms", 1, "number of bathrooms")
	f.IntVar(&listingInput.Area, "area", 0, "area in square meters")
	f.StringVar(&listingImageURL, "image", "", "image URL")
	f.BoolVar(&listingInactive, "inactive", false, "hide the listing from search")
	_ = listingAddCmd.MarkFlagRequired("title")

	listingCmd.AddCommand(listingAddCmd)
}

func runListingAdd(cmd *cobra.Command, args []string) error {
	l := listingInput
	l.Title = strings.TrimSpace(l.Title)
	if l.Title == "" {
		return fmt.Errorf("--title must not be blank")
	}
	if l.Area < 0 || l.Bathrooms < 0 {
		return fmt.Errorf("--area and --bathrooms must not be negative")
	}
	if listingImageURL != "" {
		l.ImageURL = &listingImageURL
	}
	l.IsActive = !listingInactive

	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		return err
	}

	if err := repository.NewListingRepository(pool, log).Create(ctx, &l); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added listing %s: %s\n", l.ID, l.Title)
	return nil
}
